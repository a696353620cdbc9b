package exiftag

// Entry is one row of the static catalog: the default shape a known tag id
// takes within a given Group.
type Entry struct {
	ID       uint16
	Name     string
	Group    Group
	Format   Format
	Role     Role
	Writable bool
}

type key struct {
	id    uint16
	group Group
}

var catalog = map[key]Entry{}

func register(e Entry) {
	catalog[key{e.ID, e.Group}] = e
}

// Lookup resolves a known tag id within a Group. ok is false for ids not in
// the catalog — those decode as Unknown* variants instead.
func Lookup(id uint16, group Group) (Entry, bool) {
	e, ok := catalog[key{id, group}]
	return e, ok
}

// ByName resolves a tag by its catalog name, for convenience accessors and
// tests. It is an O(n) scan over the catalog and is not meant for hot paths.
func ByName(name string) (Entry, bool) {
	for _, e := range catalog {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

func init() {
	// GENERIC (IFD0/IFD1) — TIFF baseline and pointer tags.
	register(Entry{0x0100, "ImageWidth", GENERIC, INT32U, RoleValue, true})
	register(Entry{0x0101, "ImageHeight", GENERIC, INT32U, RoleValue, true})
	register(Entry{0x0102, "BitsPerSample", GENERIC, INT16U, RoleValue, true})
	register(Entry{0x0103, "Compression", GENERIC, INT16U, RoleValue, true})
	register(Entry{0x0106, "PhotometricInterpretation", GENERIC, INT16U, RoleValue, true})
	register(Entry{0x010E, "ImageDescription", GENERIC, STRING, RoleValue, true})
	register(Entry{0x010F, "Make", GENERIC, STRING, RoleValue, true})
	register(Entry{0x0110, "Model", GENERIC, STRING, RoleValue, true})
	register(Entry{TagStripOffsets, "StripOffsets", GENERIC, INT32U, RoleDataOffset, true})
	register(Entry{0x0112, "Orientation", GENERIC, INT16U, RoleValue, true})
	register(Entry{0x0115, "SamplesPerPixel", GENERIC, INT16U, RoleValue, true})
	register(Entry{0x0116, "RowsPerStrip", GENERIC, INT32U, RoleValue, true})
	register(Entry{TagStripByteCounts, "StripByteCounts", GENERIC, INT32U, RoleValue, true})
	register(Entry{0x011A, "XResolution", GENERIC, RATIONAL64U, RoleValue, true})
	register(Entry{0x011B, "YResolution", GENERIC, RATIONAL64U, RoleValue, true})
	register(Entry{0x011C, "PlanarConfiguration", GENERIC, INT16U, RoleValue, true})
	register(Entry{0x0128, "ResolutionUnit", GENERIC, INT16U, RoleValue, true})
	register(Entry{0x0131, "Software", GENERIC, STRING, RoleValue, true})
	register(Entry{0x0132, "DateTime", GENERIC, STRING, RoleValue, true})
	register(Entry{0x013E, "WhitePoint", GENERIC, RATIONAL64U, RoleValue, true})
	register(Entry{0x013F, "PrimaryChromaticities", GENERIC, RATIONAL64U, RoleValue, true})
	register(Entry{0x0140, "ColorMap", GENERIC, INT16U, RoleValue, true})
	register(Entry{0x0201, "JPEGInterchangeFormat", GENERIC, INT32U, RoleDataOffset, true})
	register(Entry{0x0202, "JPEGInterchangeFormatLength", GENERIC, INT32U, RoleValue, true})
	register(Entry{0x0211, "YCbCrCoefficients", GENERIC, RATIONAL64U, RoleValue, true})
	register(Entry{0x0212, "YCbCrSubSampling", GENERIC, INT16U, RoleValue, true})
	register(Entry{0x0213, "YCbCrPositioning", GENERIC, INT16U, RoleValue, true})
	register(Entry{0x0214, "ReferenceBlackWhite", GENERIC, RATIONAL64U, RoleValue, true})
	register(Entry{0x8298, "Copyright", GENERIC, STRING, RoleValue, true})
	register(Entry{TagExifIFDPointer, "ExifIFDPointer", GENERIC, INT32U, RoleIFDOffset, true})
	register(Entry{TagGPSIFDPointer, "GPSIFDPointer", GENERIC, INT32U, RoleIFDOffset, true})

	// EXIF SubIFD.
	register(Entry{0x829A, "ExposureTime", EXIF, RATIONAL64U, RoleValue, true})
	register(Entry{0x829D, "FNumber", EXIF, RATIONAL64U, RoleValue, true})
	register(Entry{0x8822, "ExposureProgram", EXIF, INT16U, RoleValue, true})
	register(Entry{0x8827, "ISOSpeedRatings", EXIF, INT16U, RoleValue, true})
	register(Entry{0x9000, "ExifVersion", EXIF, UNDEF, RoleValue, true})
	register(Entry{0x9003, "DateTimeOriginal", EXIF, STRING, RoleValue, true})
	register(Entry{0x9004, "DateTimeDigitized", EXIF, STRING, RoleValue, true})
	register(Entry{0x9101, "ComponentsConfiguration", EXIF, UNDEF, RoleValue, true})
	register(Entry{0x9102, "CompressedBitsPerPixel", EXIF, RATIONAL64U, RoleValue, true})
	register(Entry{0x9201, "ShutterSpeedValue", EXIF, RATIONAL64S, RoleValue, true})
	register(Entry{0x9202, "ApertureValue", EXIF, RATIONAL64U, RoleValue, true})
	register(Entry{0x9203, "BrightnessValue", EXIF, RATIONAL64S, RoleValue, true})
	register(Entry{0x9204, "ExposureBiasValue", EXIF, RATIONAL64S, RoleValue, true})
	register(Entry{0x9205, "MaxApertureValue", EXIF, RATIONAL64U, RoleValue, true})
	register(Entry{0x9206, "SubjectDistance", EXIF, RATIONAL64U, RoleValue, true})
	register(Entry{0x9207, "MeteringMode", EXIF, INT16U, RoleValue, true})
	register(Entry{0x9208, "LightSource", EXIF, INT16U, RoleValue, true})
	register(Entry{0x9209, "Flash", EXIF, INT16U, RoleValue, true})
	register(Entry{0x920A, "FocalLength", EXIF, RATIONAL64U, RoleValue, true})
	register(Entry{0x9290, "SubSecTime", EXIF, STRING, RoleValue, true})
	register(Entry{0x9291, "SubSecTimeOriginal", EXIF, STRING, RoleValue, true})
	register(Entry{0x9292, "SubSecTimeDigitized", EXIF, STRING, RoleValue, true})
	register(Entry{0xA000, "FlashpixVersion", EXIF, UNDEF, RoleValue, true})
	register(Entry{0xA001, "ColorSpace", EXIF, INT16U, RoleValue, true})
	register(Entry{0xA002, "PixelXDimension", EXIF, INT32U, RoleValue, true})
	register(Entry{0xA003, "PixelYDimension", EXIF, INT32U, RoleValue, true})
	register(Entry{0xA005, "InteropIFDPointer", EXIF, INT32U, RoleIFDOffset, true})
	register(Entry{0xA20E, "FocalPlaneXResolution", EXIF, RATIONAL64U, RoleValue, true})
	register(Entry{0xA20F, "FocalPlaneYResolution", EXIF, RATIONAL64U, RoleValue, true})
	register(Entry{0xA217, "SensingMethod", EXIF, INT16U, RoleValue, true})
	register(Entry{0xA401, "CustomRendered", EXIF, INT16U, RoleValue, true})
	register(Entry{0xA402, "ExposureMode", EXIF, INT16U, RoleValue, true})
	register(Entry{0xA403, "WhiteBalance", EXIF, INT16U, RoleValue, true})
	register(Entry{0xA406, "SceneCaptureType", EXIF, INT16U, RoleValue, true})
	register(Entry{0xA420, "ImageUniqueID", EXIF, STRING, RoleValue, true})
	register(Entry{0xA433, "LensMake", EXIF, STRING, RoleValue, true})
	register(Entry{0xA434, "LensModel", EXIF, STRING, RoleValue, true})

	// GPS SubIFD.
	register(Entry{0x0000, "GPSVersionID", GPS, INT8U, RoleValue, true})
	register(Entry{0x0001, "GPSLatitudeRef", GPS, STRING, RoleValue, true})
	register(Entry{0x0002, "GPSLatitude", GPS, RATIONAL64U, RoleValue, true})
	register(Entry{0x0003, "GPSLongitudeRef", GPS, STRING, RoleValue, true})
	register(Entry{0x0004, "GPSLongitude", GPS, RATIONAL64U, RoleValue, true})
	register(Entry{0x0005, "GPSAltitudeRef", GPS, INT8U, RoleValue, true})
	register(Entry{0x0006, "GPSAltitude", GPS, RATIONAL64U, RoleValue, true})
	register(Entry{0x0007, "GPSTimeStamp", GPS, RATIONAL64U, RoleValue, true})
	register(Entry{0x0008, "GPSSatellites", GPS, STRING, RoleValue, true})
	register(Entry{0x000A, "GPSMeasureMode", GPS, STRING, RoleValue, true})
	register(Entry{0x000C, "GPSSpeedRef", GPS, STRING, RoleValue, true})
	register(Entry{0x000D, "GPSSpeed", GPS, RATIONAL64U, RoleValue, true})
	register(Entry{0x001B, "GPSProcessingMethod", GPS, UNDEF, RoleValue, true})
	register(Entry{0x001D, "GPSDateStamp", GPS, STRING, RoleValue, true})

	// INTEROP SubIFD.
	register(Entry{0x0001, "InteropIndex", INTEROP, STRING, RoleValue, true})
	register(Entry{0x0002, "InteropVersion", INTEROP, UNDEF, RoleValue, true})

	// Thumbnail (IFD1, GENERIC group, generic-IFD index 1) data offset pair.
	register(Entry{TagThumbnailOffset, "ThumbnailOffset", GENERIC, INT32U, RoleDataOffset, true})
	register(Entry{TagThumbnailLength, "ThumbnailLength", GENERIC, INT32U, RoleValue, true})
}

// BaselineWhitelist is the closed set of GENERIC tags retained by
// reduce-to-a-minimum: the tags required for TIFF baseline validity plus
// pixel retrieval, per the write_to_file gating rule.
var BaselineWhitelist = map[uint16]bool{
	0x0100: true, // ImageWidth
	0x0101: true, // ImageHeight
	0x0102: true, // BitsPerSample
	0x0103: true, // Compression
	0x0106: true, // PhotometricInterpretation
	0x0115: true, // SamplesPerPixel
	TagStripOffsets:    true,
	0x0116:             true, // RowsPerStrip
	TagStripByteCounts: true,
	0x011A:             true, // XResolution
	0x011B:             true, // YResolution
	0x0128:             true, // ResolutionUnit
	0x0140:             true, // ColorMap
	TagThumbnailOffset: true,
	TagThumbnailLength: true,
}

// RequiredTIFFBaseline is the set of GENERIC IFD0 tags write_to_file asserts
// are present before overwriting a bare-TIFF file.
var RequiredTIFFBaseline = []uint16{
	0x0100, // ImageWidth
	0x0101, // ImageHeight
	0x0103, // Compression
	0x0106, // PhotometricInterpretation
	TagStripOffsets,
	0x0116, // RowsPerStrip
	TagStripByteCounts,
	0x011A, // XResolution
	0x011B, // YResolution
	0x0128, // ResolutionUnit
}

// RecommendedTIFFBaseline is warned about, not fatal, when missing.
var RecommendedTIFFBaseline = []uint16{
	0x0102, // BitsPerSample
	0x0115, // SamplesPerPixel
	0x0140, // ColorMap
}
