package classify_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"camroll/internal/classify"
	"camroll/internal/ledger"
	"camroll/internal/logging"
	"camroll/internal/organize"
)

// tiffWithModel builds a minimal little-endian TIFF block whose first IFD
// carries only the Model tag.
func tiffWithModel(model string) []byte {
	value := append([]byte(model), 0)
	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, binary.LittleEndian, uint16(42))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0x0110))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(value)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(26))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.Write(value)
	return buf.Bytes()
}

type stubDownloader struct {
	files map[string][]byte
	err   error
	calls int
}

func (d *stubDownloader) Download(_ context.Context, path string, w io.Writer) (int64, error) {
	d.calls++
	if d.err != nil {
		return 0, d.err
	}
	n, err := w.Write(d.files[path])
	return int64(n), err
}

func entry(name string) organize.Entry {
	return organize.Entry{SourcePath: "/Camera Uploads/2021-05/" + name, DisplayName: name, Kind: organize.KindFile}
}

func TestDateClassifier(t *testing.T) {
	classifier, err := classify.NewDateClassifier(`^(\d{4}-\d{2})-\d{2}`)
	if err != nil {
		t.Fatalf("NewDateClassifier: %v", err)
	}
	cases := []struct {
		name string
		want organize.GroupKey
		skip bool
	}{
		{"2021-05-01 01.00.00.jpg", "2021-05", false},
		{"2021-06-30 23.59.59.mov", "2021-06", false},
		{"IMG_0001.jpg", "", true},
		{"x2021-05-01.jpg", "", true},
	}
	for _, tc := range cases {
		got, err := classifier.Classify(context.Background(), entry(tc.name))
		if tc.skip {
			if !errors.Is(err, organize.ErrSkip) {
				t.Errorf("%s: expected ErrSkip, got %v", tc.name, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%s: got %q, %v; want %q", tc.name, got, err, tc.want)
		}
	}
}

func TestNewDateClassifierRequiresGroup(t *testing.T) {
	if _, err := classify.NewDateClassifier(`^\d{4}`); err == nil {
		t.Fatal("expected error for pattern without capture group")
	}
}

func TestReadModel(t *testing.T) {
	model, err := classify.ReadModel(bytes.NewReader(tiffWithModel("iPhone 5c")))
	if err != nil {
		t.Fatalf("ReadModel: %v", err)
	}
	if model != "iPhone 5c" {
		t.Fatalf("model = %q", model)
	}
	if _, err := classify.ReadModel(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatal("expected decode error")
	}
}

func newDeviceClassifier(t *testing.T, downloader classify.Downloader, opts classify.DeviceOptions) (*classify.DeviceClassifier, ledger.Ledger) {
	t.Helper()
	l, err := ledger.OpenFile(filepath.Join(t.TempDir(), "processed"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	if opts.OtherFolder == "" {
		opts.OtherFolder = "Other"
	}
	opts.TempDir = t.TempDir()
	return classify.NewDeviceClassifier(downloader, l, opts, logging.NewNop()), l
}

func TestDeviceClassifierRoutesByModel(t *testing.T) {
	downloader := &stubDownloader{files: map[string][]byte{
		"/Camera Uploads/2021-05/phone.jpg":  tiffWithModel("iPhone 5c"),
		"/Camera Uploads/2021-05/camera.jpg": tiffWithModel("Canon EOS 5D"),
		"/Camera Uploads/2021-05/broken.jpg": []byte("garbage"),
	}}
	classifier, l := newDeviceClassifier(t, downloader, classify.DeviceOptions{PhoneModels: []string{"iPhone 5c"}})
	ctx := context.Background()

	if _, err := classifier.Classify(ctx, entry("phone.jpg")); !errors.Is(err, organize.ErrSkip) {
		t.Fatalf("phone photo: expected ErrSkip, got %v", err)
	}
	if key, err := classifier.Classify(ctx, entry("camera.jpg")); err != nil || key != "Other" {
		t.Fatalf("camera photo: got %q, %v", key, err)
	}
	_, err := classifier.Classify(ctx, entry("broken.jpg"))
	if err == nil || errors.Is(err, organize.ErrSkip) {
		t.Fatalf("broken photo: expected fallback error, got %v", err)
	}

	for _, name := range []string{"phone.jpg", "camera.jpg", "broken.jpg"} {
		if ok, _ := l.Contains(ctx, "/Camera Uploads/2021-05/"+name); !ok {
			t.Fatalf("expected %s to be marked processed", name)
		}
	}

	calls := downloader.calls
	if _, err := classifier.Classify(ctx, entry("camera.jpg")); !errors.Is(err, organize.ErrSkip) {
		t.Fatalf("processed file: expected ErrSkip, got %v", err)
	}
	if downloader.calls != calls {
		t.Fatal("processed file must not be downloaded again")
	}
}

func TestDeviceClassifierVideosAndExclusions(t *testing.T) {
	downloader := &stubDownloader{}
	cases := []struct {
		name       string
		opts       classify.DeviceOptions
		file       string
		want       organize.GroupKey
		wantSkip   bool
		wantMarked bool
	}{
		{"video skipped without folder", classify.DeviceOptions{VideoExtensions: []string{".mov"}}, "clip.MOV", "", true, false},
		{"video routed to folder", classify.DeviceOptions{VideoExtensions: []string{".mov"}, VideoFolder: "Videos"}, "clip.mov", "Videos", false, true},
		{"excluded extension", classify.DeviceOptions{SkipExtensions: []string{".png"}}, "shot.png", "", true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			classifier, l := newDeviceClassifier(t, downloader, tc.opts)
			key, err := classifier.Classify(context.Background(), entry(tc.file))
			if tc.wantSkip != errors.Is(err, organize.ErrSkip) {
				t.Fatalf("skip = %v, got err %v", tc.wantSkip, err)
			}
			if key != tc.want {
				t.Fatalf("key = %q, want %q", key, tc.want)
			}
			if ok, _ := l.Contains(context.Background(), entry(tc.file).SourcePath); ok != tc.wantMarked {
				t.Fatalf("marked = %v, want %v", ok, tc.wantMarked)
			}
		})
	}
	if downloader.calls != 0 {
		t.Fatalf("videos and excluded files must not be downloaded, got %d calls", downloader.calls)
	}
}

func TestDeviceClassifierDownloadFailureLeavesFileUnmarked(t *testing.T) {
	downloader := &stubDownloader{err: errors.New("connection reset")}
	classifier, l := newDeviceClassifier(t, downloader, classify.DeviceOptions{})

	_, err := classifier.Classify(context.Background(), entry("a.jpg"))
	if !errors.Is(err, organize.ErrSkip) {
		t.Fatalf("expected ErrSkip on download failure, got %v", err)
	}
	if ok, _ := l.Contains(context.Background(), entry("a.jpg").SourcePath); ok {
		t.Fatal("failed download must not be marked processed")
	}
}

func TestDeviceClassifierDryRunLeavesLedgerUntouched(t *testing.T) {
	downloader := &stubDownloader{files: map[string][]byte{
		"/Camera Uploads/2021-05/camera.jpg": tiffWithModel("Canon EOS 5D"),
		"/Camera Uploads/2021-05/old.jpg":    tiffWithModel("Canon EOS 5D"),
	}}
	classifier, l := newDeviceClassifier(t, downloader, classify.DeviceOptions{
		PhoneModels:     []string{"iPhone 5c"},
		VideoExtensions: []string{".mov"},
		VideoFolder:     "Videos",
		DryRun:          true,
	})
	ctx := context.Background()
	if err := l.Mark(ctx, entry("old.jpg").SourcePath); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	if key, err := classifier.Classify(ctx, entry("camera.jpg")); err != nil || key != "Other" {
		t.Fatalf("camera photo: got %q, %v", key, err)
	}
	if key, err := classifier.Classify(ctx, entry("clip.mov")); err != nil || key != "Videos" {
		t.Fatalf("video: got %q, %v", key, err)
	}
	if _, err := classifier.Classify(ctx, entry("old.jpg")); !errors.Is(err, organize.ErrSkip) {
		t.Fatalf("processed file: expected ErrSkip, got %v", err)
	}

	for _, name := range []string{"camera.jpg", "clip.mov"} {
		if ok, _ := l.Contains(ctx, entry(name).SourcePath); ok {
			t.Fatalf("dry run marked %s as processed", name)
		}
	}
}
