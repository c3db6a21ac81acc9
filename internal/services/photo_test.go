package services

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

const (
	tiffASCII    = 2
	tiffLong     = 4
	tiffRational = 5
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiEntry(tag uint16, s string) ifdEntry {
	b := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: tiffASCII, count: uint32(len(b)), data: b}
}

func longEntry(tag uint16, v uint32) ifdEntry {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return ifdEntry{tag: tag, typ: tiffLong, count: 1, data: b}
}

// degreesEntry encodes |v| as degrees, minutes and seconds rationals.
func degreesEntry(tag uint16, v float64) ifdEntry {
	v = math.Abs(v)
	deg := math.Floor(v)
	minutes := math.Floor((v - deg) * 60)
	seconds := ((v-deg)*60 - minutes) * 60

	b := make([]byte, 24)
	put := func(i int, num, den uint32) {
		binary.LittleEndian.PutUint32(b[i*8:], num)
		binary.LittleEndian.PutUint32(b[i*8+4:], den)
	}
	put(0, uint32(deg), 1)
	put(1, uint32(minutes), 1)
	put(2, uint32(math.Round(seconds*10000)), 10000)
	return ifdEntry{tag: tag, typ: tiffRational, count: 3, data: b}
}

func ifdSize(entries []ifdEntry) int {
	n := 2 + 12*len(entries) + 4
	for _, e := range entries {
		if len(e.data) > 4 {
			n += len(e.data) + len(e.data)%2
		}
	}
	return n
}

func writeIFD(buf *bytes.Buffer, entries []ifdEntry, offset int) {
	le := binary.LittleEndian
	extra := offset + 2 + 12*len(entries) + 4
	var tail bytes.Buffer

	binary.Write(buf, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(buf, le, e.tag)
		binary.Write(buf, le, e.typ)
		binary.Write(buf, le, e.count)
		if len(e.data) <= 4 {
			v := make([]byte, 4)
			copy(v, e.data)
			buf.Write(v)
			continue
		}
		binary.Write(buf, le, uint32(extra+tail.Len()))
		tail.Write(e.data)
		if len(e.data)%2 == 1 {
			tail.WriteByte(0)
		}
	}
	binary.Write(buf, le, uint32(0))
	buf.Write(tail.Bytes())
}

// exifSegment builds a little endian TIFF block with an optional capture
// time and an optional GPS position.
func exifSegment(taken time.Time, gps []float64) []byte {
	var exifIFD, gpsIFD []ifdEntry
	if !taken.IsZero() {
		exifIFD = append(exifIFD, asciiEntry(0x9003, taken.Format("2006:01:02 15:04:05")))
	}
	if gps != nil {
		lat, lon := gps[0], gps[1]
		ns, ew := "N", "E"
		if lat < 0 {
			ns = "S"
		}
		if lon < 0 {
			ew = "W"
		}
		gpsIFD = []ifdEntry{
			asciiEntry(1, ns),
			degreesEntry(2, lat),
			asciiEntry(3, ew),
			degreesEntry(4, lon),
		}
	}

	ifd0 := []ifdEntry{asciiEntry(0x010F, "photokml")}
	if exifIFD != nil {
		ifd0 = append(ifd0, longEntry(0x8769, 0))
	}
	if gpsIFD != nil {
		ifd0 = append(ifd0, longEntry(0x8825, 0))
	}

	off := 8 + ifdSize(ifd0)
	exifOff, gpsOff := off, off+ifdSize(exifIFD)
	for i := range ifd0 {
		switch ifd0[i].tag {
		case 0x8769:
			binary.LittleEndian.PutUint32(ifd0[i].data, uint32(exifOff))
		case 0x8825:
			binary.LittleEndian.PutUint32(ifd0[i].data, uint32(gpsOff))
		}
	}

	var buf bytes.Buffer
	buf.WriteString("II*\x00")
	binary.Write(&buf, binary.LittleEndian, uint32(8))
	writeIFD(&buf, ifd0, 8)
	if exifIFD != nil {
		writeIFD(&buf, exifIFD, exifOff)
	}
	if gpsIFD != nil {
		writeIFD(&buf, gpsIFD, gpsOff)
	}
	return buf.Bytes()
}

func plainJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 48, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 5), uint8(y * 7), 120, 255})
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// photoJPEG returns a small JPEG carrying an Exif APP1 segment. A zero taken
// omits the capture time and a nil gps omits the GPS block.
func photoJPEG(t *testing.T, taken time.Time, gps []float64) []byte {
	t.Helper()
	jpg := plainJPEG(t)
	payload := append([]byte("Exif\x00\x00"), exifSegment(taken, gps)...)

	var out bytes.Buffer
	out.Write(jpg[:2])
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpg[2:])
	return out.Bytes()
}

func writeFile(t *testing.T, dir, rel string, data []byte) string {
	t.Helper()
	name := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return name
}

func at(hour int) time.Time {
	return time.Date(2021, 6, 1, hour, 0, 0, 0, time.UTC)
}

func geo(lat, lon float64) []float64 {
	return []float64{lat, lon}
}
