package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewCamera_Defaults(t *testing.T) {
	cam := NewCamera(0)
	if cam == nil {
		t.Fatal("NewCamera returned nil")
	}
	if got := cam.FPS(); got != DefaultFPS {
		t.Errorf("FPS() = %d, want %d", got, DefaultFPS)
	}
	if cam.IsOpen() {
		t.Error("camera reports open before Open()")
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	tests := []struct {
		name string
		fps  int
		want int
	}{
		{"set to 10", 10, 10},
		{"set to 30", 30, 30},
		{"set to 1", 1, 1},
		{"zero keeps previous", 0, 1},
		{"negative keeps previous", -5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)
			if got := cam.FPS(); got != tt.want {
				t.Errorf("FPS() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	if _, err := cam.ReadFrame(); err == nil {
		t.Error("ReadFrame() on a closed camera returned no error")
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on a never-opened camera = %v", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)
	if err := cam.Open(); err != nil {
		t.Skipf("camera not available: %v", err)
	}
	if !cam.IsOpen() {
		t.Error("IsOpen() false after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() = %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned an empty mat")
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() true after Close()")
	}
}

func TestMockCamera_Playback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	t.Run("without loop frames run out", func(t *testing.T) {
		cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)
		if err := cam.Open(); err != nil {
			t.Fatalf("Open() = %v", err)
		}
		defer cam.Close()

		for i := 0; i < 2; i++ {
			f, err := cam.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() #%d = %v", i, err)
			}
			f.Close()
		}
		if _, err := cam.ReadFrame(); err == nil {
			t.Error("no error after all frames were consumed")
		}
	})

	t.Run("with loop playback repeats", func(t *testing.T) {
		cam := NewMockCamera([]*gocv.Mat{&frame1}, true)
		cam.Open()
		defer cam.Close()

		for i := 0; i < 5; i++ {
			f, err := cam.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() #%d = %v", i, err)
			}
			f.Close()
		}
	})
}

func TestJPEG(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	data, err := JPEG(cam)
	if err != nil {
		t.Fatalf("JPEG() = %v", err)
	}
	if len(data) < 4 {
		t.Fatalf("got %d bytes", len(data))
	}
	// JPEG magic: FF D8 leading, FF D9 trailing.
	if data[0] != 0xFF || data[1] != 0xD8 {
		t.Errorf("bad JPEG header: % x", data[:2])
	}
	if data[len(data)-2] != 0xFF || data[len(data)-1] != 0xD9 {
		t.Errorf("bad JPEG trailer: % x", data[len(data)-2:])
	}
}

func TestJPEG_ClosedCamera(t *testing.T) {
	cam := NewMockCamera(nil, false)
	if _, err := JPEG(cam); err == nil {
		t.Error("JPEG() on a closed camera returned no error")
	}
}
