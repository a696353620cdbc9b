package littleexif

import "strings"

// DeclaredType names the container format a caller asserts a buffer holds,
// used by NewFromVec/WriteToVec/AsU8Vec where there is no file path to
// sniff an extension from. PNG additionally carries whether the EXIF
// payload should be written as a legacy zTXt text chunk instead of the
// modern eXIf chunk.
type DeclaredType struct {
	Kind        FormatKind
	AsTextChunk bool
}

// FormatKind is the closed set of container formats this module writes.
type FormatKind int

const (
	FormatJPEG FormatKind = iota
	FormatPNG
	FormatWebP
	FormatTIFF
	FormatJXL
	FormatHEIF
)

func (k FormatKind) String() string {
	switch k {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	case FormatWebP:
		return "WebP"
	case FormatTIFF:
		return "TIFF"
	case FormatJXL:
		return "JXL"
	case FormatHEIF:
		return "HEIF"
	default:
		return "Unknown"
	}
}

// PNG builds a DeclaredType for PNG, optionally requesting the legacy
// zTXt text-chunk EXIF carrier over the default eXIf chunk.
func PNG(asTextChunk bool) DeclaredType {
	return DeclaredType{Kind: FormatPNG, AsTextChunk: asTextChunk}
}

// JPEG, WebP, TIFF, JXL and HEIF build the corresponding DeclaredType; none
// of these formats takes PNG's as-text-chunk option.
func JPEG() DeclaredType { return DeclaredType{Kind: FormatJPEG} }
func WebP() DeclaredType { return DeclaredType{Kind: FormatWebP} }
func TIFF() DeclaredType { return DeclaredType{Kind: FormatTIFF} }
func JXL() DeclaredType  { return DeclaredType{Kind: FormatJXL} }
func HEIF() DeclaredType { return DeclaredType{Kind: FormatHEIF} }

// DeclaredTypeFromExtension parses a case-insensitive file extension
// (with or without a leading dot) into a DeclaredType. ok is false for an
// extension this module does not recognize.
func DeclaredTypeFromExtension(ext string) (dt DeclaredType, ok bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "jpg", "jpeg":
		return JPEG(), true
	case "png":
		return PNG(false), true
	case "webp":
		return WebP(), true
	case "tif", "tiff":
		return TIFF(), true
	case "jxl":
		return JXL(), true
	case "heic", "heif":
		return HEIF(), true
	default:
		return DeclaredType{}, false
	}
}
