package container_test

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/provascan/provascan/internal/container"
	"github.com/provascan/provascan/internal/model"
	"github.com/provascan/provascan/internal/testutil"
)

func TestDetectType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data []byte
		want model.ContainerType
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, model.ContainerJPEG},
		{"png", testutil.PNGSignature, model.ContainerPNG},
		{"gif87", []byte("GIF87a"), model.ContainerGIF},
		{"gif89", []byte("GIF89a"), model.ContainerGIF},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), model.ContainerWebP},
		{"avi", []byte("RIFF\x00\x00\x00\x00AVI "), model.ContainerAVI},
		{"mp4", []byte("\x00\x00\x00\x18ftypisom"), model.ContainerMP4},
		{"avif", []byte("\x00\x00\x00\x18ftypavif"), model.ContainerAVIF},
		{"tiff little endian", []byte{'I', 'I', 0x2A, 0x00}, model.ContainerTIFF},
		{"tiff big endian", []byte{'M', 'M', 0x00, 0x2A}, model.ContainerTIFF},
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3}, model.ContainerWebM},
		{"empty", nil, model.ContainerUnknown},
		{"too short", []byte{0xFF, 0xD8}, model.ContainerUnknown},
		{"plain text", []byte("hello world, nothing here"), model.ContainerUnknown},
		{"riff but unknown form", []byte("RIFF\x00\x00\x00\x00WAVE"), model.ContainerUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := container.DetectType(tc.data); got != tc.want {
				t.Errorf("DetectType(%q) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}

// JPEG bytes happen to start with 0xFF 0xD8 0xFF even when a later RIFF or
// ftyp token appears in the body; detection must go by prefix priority.
func TestDetectTypePriority(t *testing.T) {
	t.Parallel()

	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("RIFF....WEBP")...)
	if got := container.DetectType(data); got != model.ContainerJPEG {
		t.Errorf("got %q, want jpeg", got)
	}
}

func TestParsePNGText(t *testing.T) {
	t.Parallel()

	data := testutil.PNGWithText("parameters", "Steps: 20, Sampler: Euler a, CFG scale: 7")
	res := container.Parse(data)

	if res.ContainerType != model.ContainerPNG {
		t.Fatalf("container = %q, want png", res.ContainerType)
	}
	if len(res.Fields) != 1 {
		t.Fatalf("got %d fields, want 1: %+v", len(res.Fields), res.Fields)
	}
	f := res.Fields[0]
	if f.Source != "PNG tEXt keyword=parameters" {
		t.Errorf("source = %q", f.Source)
	}
	if !strings.Contains(f.Text, "Steps: 20") {
		t.Errorf("text = %q, want the parameter text", f.Text)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestParsePNGIntlText(t *testing.T) {
	t.Parallel()

	data := testutil.PNGWithIntlText("Description", "rendered with --ar 16:9 --v 6")
	res := container.Parse(data)

	if len(res.Fields) != 1 {
		t.Fatalf("got %d fields, want 1: %+v", len(res.Fields), res.Fields)
	}
	if res.Fields[0].Source != "PNG iTXt keyword=Description" {
		t.Errorf("source = %q", res.Fields[0].Source)
	}
	if !strings.Contains(res.Fields[0].Text, "--ar 16:9") {
		t.Errorf("text = %q", res.Fields[0].Text)
	}
}

func TestParsePNGCompressedText(t *testing.T) {
	t.Parallel()

	data := testutil.PNGWithCompressedText("Comment", "made with stable diffusion")
	res := container.Parse(data)

	if len(res.Fields) != 1 {
		t.Fatalf("got %d fields, want 1: %+v", len(res.Fields), res.Fields)
	}
	if res.Fields[0].Text != "made with stable diffusion" {
		t.Errorf("text = %q, want the inflated value", res.Fields[0].Text)
	}
}

func TestParsePNGCorruptZlibKeepsField(t *testing.T) {
	t.Parallel()

	data := testutil.PNGWithCompressedText("Comment", "whatever")
	// Corrupt the zlib header; the keyword should survive with a marker value.
	streamStart := bytes.Index(data, []byte("Comment\x00")) + len("Comment\x00") + 1
	data[streamStart] ^= 0xFF
	res := container.Parse(data)

	found := false
	for _, f := range res.Fields {
		if f.Source == "PNG zTXt keyword=Comment" && f.Text == "(compressed, unreadable)" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unreadable marker field, got %+v", res.Fields)
	}
}

func TestParseTruncatedPNG(t *testing.T) {
	t.Parallel()

	full := testutil.PNGWithText("parameters", strings.Repeat("x", 300))
	// Chop mid-chunk: parse must warn, not panic, and keep prior fields.
	for cut := 10; cut < len(full); cut += 17 {
		res := container.Parse(full[:cut])
		if res.ContainerType != model.ContainerPNG && cut >= 8 {
			t.Fatalf("cut=%d: container = %q", cut, res.ContainerType)
		}
	}

	res := container.Parse(full[:len(full)-30])
	if len(res.Warnings) == 0 {
		t.Error("expected a truncation warning")
	}
}

func TestParseJPEGComment(t *testing.T) {
	t.Parallel()

	res := container.Parse(testutil.JPEGWithComment("created with Midjourney v6"))
	if res.ContainerType != model.ContainerJPEG {
		t.Fatalf("container = %q", res.ContainerType)
	}
	if len(res.Fields) != 1 || res.Fields[0].Source != "JPEG comment" {
		t.Fatalf("fields = %+v", res.Fields)
	}
	if res.Fields[0].Text != "created with Midjourney v6" {
		t.Errorf("text = %q", res.Fields[0].Text)
	}
}

func TestParseJPEGExifSoftware(t *testing.T) {
	t.Parallel()

	res := container.Parse(testutil.JPEGWithExifSoftware("Adobe Firefly 2.0"))
	found := false
	for _, f := range res.Fields {
		if f.Source == "EXIF Software" && f.Text == "Adobe Firefly 2.0" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected EXIF Software field, got %+v", res.Fields)
	}
}

func TestParseBareJPEGHasNoFields(t *testing.T) {
	t.Parallel()

	res := container.Parse([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	if len(res.Fields) != 0 {
		t.Errorf("fields = %+v, want none", res.Fields)
	}
}

func TestParseGIFComment(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("niji journey output ", 20) // spans sub-blocks
	res := container.Parse(testutil.GIFWithComment(long))
	if len(res.Fields) != 1 || res.Fields[0].Source != "GIF comment" {
		t.Fatalf("fields = %+v", res.Fields)
	}
	if !strings.Contains(res.Fields[0].Text, "niji journey") {
		t.Errorf("text = %q", res.Fields[0].Text)
	}
}

func TestParseUnknownFallsBackToTextScan(t *testing.T) {
	t.Parallel()

	res := container.Parse([]byte("some opaque blob mentioning stable diffusion somewhere"))
	if res.ContainerType != model.ContainerUnknown {
		t.Fatalf("container = %q", res.ContainerType)
	}
	if len(res.Fields) != 1 || res.Fields[0].Source != "raw text scan" {
		t.Fatalf("fields = %+v", res.Fields)
	}
	if !strings.Contains(res.Fields[0].Text, "stable diffusion") {
		t.Errorf("text = %q", res.Fields[0].Text)
	}
}

func TestParseC2PATokenScan(t *testing.T) {
	t.Parallel()

	blob := []byte(`junkjunk{"claim_generator":"DALL-E 3","assertions":[]}junk c2pa.org junk`)
	res := container.Parse(blob)

	var sources []string
	for _, f := range res.Fields {
		sources = append(sources, f.Source)
	}
	hasC2PA := false
	for _, s := range sources {
		if strings.HasPrefix(s, "C2PA") {
			hasC2PA = true
		}
	}
	if !hasC2PA {
		t.Errorf("expected a C2PA field, got sources %v", sources)
	}
}

func TestParseIdempotent(t *testing.T) {
	t.Parallel()

	inputs := [][]byte{
		testutil.PNGWithText("parameters", "Steps: 30, Seed: 12345"),
		testutil.JPEGWithComment("hello"),
		testutil.GIFWithComment("a comment"),
		[]byte("unstructured text with generated in it"),
		{0xFF, 0xD8, 0xFF, 0xD9},
	}
	for _, data := range inputs {
		a := container.Parse(data)
		b := container.Parse(data)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Parse not deterministic for %v", data[:min(len(data), 16)])
		}
	}
}

func TestParseNeverPanicsOnGarbage(t *testing.T) {
	t.Parallel()

	// Valid prefixes followed by garbage must degrade to warnings.
	prefixes := [][]byte{
		{0xFF, 0xD8, 0xFF},
		testutil.PNGSignature,
		[]byte("GIF89a"),
		[]byte("RIFF\xFF\xFF\xFF\xFFWEBP"),
		[]byte("\x00\x00\x00\x10ftypisom"),
		[]byte{'I', 'I', 0x2A, 0x00},
	}
	for _, p := range prefixes {
		data := append(append([]byte{}, p...), 0xFF, 0x00, 0x13, 0x37, 0xFF, 0xFF, 0xFF, 0xFF)
		res := container.Parse(data)
		if res == nil {
			t.Fatal("Parse returned nil")
		}
	}
}
