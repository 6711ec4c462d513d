package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ayusman/drishti/internal/app"
	"github.com/ayusman/drishti/internal/describe"
	"github.com/ayusman/drishti/internal/haptic"
	"github.com/ayusman/drishti/internal/nav"
	"github.com/ayusman/drishti/internal/server"
	"github.com/ayusman/drishti/internal/session"
	"github.com/ayusman/drishti/internal/speech"
	"github.com/ayusman/drishti/internal/store"
	"github.com/ayusman/drishti/internal/tray"
)

func main() {
	fmt.Println("Drishti - Assistive Vision Companion")

	// Optional .env file for API keys and endpoints
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cameraID := flag.Int("camera", 0, "camera device ID")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "", "database path (default ~/.drishti/drishti.db)")
	motionThresh := flag.Float64("motion", 1.0, "motion threshold in percent changed pixels")
	flag.Parse()

	st, err := openStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	application := app.New(app.Config{
		Store:        st,
		CameraID:     *cameraID,
		MotionThresh: *motionThresh,
	})

	apiKey := os.Getenv("OPENAI_API_KEY")

	var speaker session.Speaker = speech.Logger{}
	if apiKey != "" {
		if sp, err := buildSpeaker(apiKey); err == nil {
			speaker = sp
		} else {
			log.Printf("Speech unavailable (%v), logging utterances", err)
		}
	} else {
		log.Println("OPENAI_API_KEY not set, logging utterances")
	}

	var analyzer session.Analyzer
	if apiKey != "" {
		a, err := describe.New(describe.Config{
			APIKey:  apiKey,
			BaseURL: os.Getenv("DRISHTI_OPENAI_BASE_URL"),
			Model:   os.Getenv("DRISHTI_VISION_MODEL"),
		}, application)
		if err != nil {
			log.Printf("Scene analysis unavailable: %v", err)
		} else {
			analyzer = a
		}
	}

	navSvc := nav.NewService(
		nav.NewNominatimGeocoder(os.Getenv("DRISHTI_NOMINATIM_URL")),
		nav.NewOSRMRouter(os.Getenv("DRISHTI_OSRM_URL")),
		homeLocation(),
	)

	hub := server.NewEventHub(application.Camera(), application.Detector())
	defer hub.Close()
	trayApp := tray.New()

	machine := session.NewMachine(session.Config{
		Speaker:   speaker,
		Pulser:    haptic.Func(hub.BroadcastPulse),
		Analyzer:  analyzer,
		Navigator: navSvc,
		Recorder:  app.NewRecorder(st),
		OnTransition: func(s session.State) {
			hub.BroadcastState(s)
			trayApp.SetMode(string(s.Mode))
		},
	})
	application.AttachMachine(machine)

	// Find web directory for the dashboard
	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Machine:   machine,
		Nav:       navSvc,
		Camera:    application.Camera(),
		Detector:  application.Detector(),
		Events:    hub,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if err := application.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	application.SetEnabled(true)

	trayApp.OnToggle(application.SetEnabled)
	trayApp.OnStop(machine.Stop)
	trayApp.OnSettings(func() {
		log.Printf("Dashboard available at http://localhost%s", *addr)
	})
	trayApp.OnQuit(func() {
		application.Stop()
	})

	// Blocks until quit
	trayApp.Run()
}

// openStore resolves the database path and opens the store.
func openStore(dbPath string) (*store.Store, error) {
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		dbDir := filepath.Join(homeDir, ".drishti")
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dbDir, "drishti.db")
	}

	return store.New(dbPath)
}

// buildSpeaker assembles the TTS speaker from the environment.
func buildSpeaker(apiKey string) (*speech.Speaker, error) {
	tts, err := speech.NewOpenAITTS(speech.TTSConfig{
		APIKey:  apiKey,
		BaseURL: os.Getenv("DRISHTI_OPENAI_BASE_URL"),
		Voice:   os.Getenv("DRISHTI_VOICE"),
	})
	if err != nil {
		return nil, err
	}
	return speech.NewSpeaker(tts)
}

// homeLocation reads the configured position. The desktop build has no GPS,
// so the current location is pinned through the environment.
func homeLocation() nav.LocationProvider {
	latStr := os.Getenv("DRISHTI_HOME_LAT")
	lonStr := os.Getenv("DRISHTI_HOME_LON")
	if latStr == "" || lonStr == "" {
		return nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		log.Printf("Invalid DRISHTI_HOME_LAT: %v", err)
		return nil
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		log.Printf("Invalid DRISHTI_HOME_LON: %v", err)
		return nil
	}

	return nav.FixedLocation{Lat: lat, Lon: lon}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.drishti/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".drishti", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
