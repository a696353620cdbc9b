package littleexif

import (
	"sort"

	"github.com/TechnikTobi/little-exif-sub000/exiftag"
	"github.com/TechnikTobi/little-exif-sub000/ifd"
)

// TagPrototype identifies a tag kind to look up or remove: its id within a
// group. It carries no value — callers build a concrete ifd.Tag for
// SetTag.
type TagPrototype struct {
	ID    uint16
	Group exiftag.Group
}

// AllTags returns every tag across every IFD in (n, group, id) order, the
// canonical iteration order the façade promises callers.
func (m *Metadata) AllTags() []ifd.Tag {
	type located struct {
		n   uint32
		tag ifd.Tag
	}
	var all []located
	for _, d := range m.IFDs {
		for _, t := range d.Tags {
			all = append(all, located{n: d.GenericIFDNr, tag: t})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.n != b.n {
			return a.n < b.n
		}
		if a.tag.Group != b.tag.Group {
			return a.tag.Group < b.tag.Group
		}
		return a.tag.ID < b.tag.ID
	})
	out := make([]ifd.Tag, len(all))
	for i, l := range all {
		out[i] = l.tag
	}
	return out
}

// GetTag returns every tag matching proto, across every IFD of that
// group, in ascending generic-IFD-number order.
func (m *Metadata) GetTag(proto TagPrototype) []ifd.Tag {
	var out []ifd.Tag
	dirs := make([]*ifd.Dir, len(m.IFDs))
	copy(dirs, m.IFDs)
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].GenericIFDNr < dirs[j].GenericIFDNr })
	for _, d := range dirs {
		if d.Group != proto.Group {
			continue
		}
		if t, ok := d.GetTag(proto.ID); ok {
			out = append(out, t)
		}
	}
	return out
}

// GetTagByHex returns every tag with the given id, optionally restricted
// to one group. group == nil searches every group.
func (m *Metadata) GetTagByHex(id uint16, group *exiftag.Group) []ifd.Tag {
	var out []ifd.Tag
	for _, t := range m.AllTags() {
		if t.ID != id {
			continue
		}
		if group != nil && t.Group != *group {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SetTag sets t into GENERIC-IFD-number-0 of its own group, auto-creating
// that IFD (and, recursively, its parent) if it does not already exist.
func (m *Metadata) SetTag(t ifd.Tag) {
	d := m.CreateIFD(t.Group, 0)
	d.SetTag(t)
}

// RemoveTag deletes every tag matching proto across every IFD of that
// group and reports how many were removed.
func (m *Metadata) RemoveTag(proto TagPrototype) int {
	count := 0
	for _, d := range m.IFDs {
		if d.Group != proto.Group {
			continue
		}
		if d.RemoveTag(proto.ID) {
			count++
		}
	}
	return count
}
