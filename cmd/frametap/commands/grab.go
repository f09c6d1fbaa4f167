package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bryanchriswhite/FrameTap/internal/capture"
	"github.com/bryanchriswhite/FrameTap/internal/config"
	"github.com/bryanchriswhite/FrameTap/internal/gfx/x11"
	"github.com/bryanchriswhite/FrameTap/internal/logger"
	"github.com/bryanchriswhite/FrameTap/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var grabCmd = &cobra.Command{
	Use:   "grab",
	Short: "Capture frames from a window or display",
	Long: `Capture frames from a window or display into CPU memory and report
capture statistics once per second.

The capture runs until interrupted, until --frames frames have been
grabbed, or until the captured window is closed.`,
	Example: `  # Capture the first window whose title contains "firefox"
  frametap grab --window firefox

  # Capture a window by ID (see 'frametap list')
  frametap grab --window-id 0x3a00007

  # Capture display 0 at ~30 fps
  frametap grab --display 0 --interval 33`,
	RunE: runGrab,
}

var (
	grabWindow   string
	grabWindowID string
	grabDisplay  int
	grabCursor   bool
	grabFrames   int
)

func init() {
	rootCmd.AddCommand(grabCmd)

	grabCmd.Flags().StringVarP(&grabWindow, "window", "w", "", "capture the first window whose title contains this substring")
	grabCmd.Flags().StringVar(&grabWindowID, "window-id", "", "capture the window with this X11 ID")
	grabCmd.Flags().IntVarP(&grabDisplay, "display", "d", -1, "capture the display with this index")
	grabCmd.Flags().BoolVar(&grabCursor, "cursor", false, "include the cursor in captured frames")
	grabCmd.Flags().IntVarP(&grabFrames, "frames", "n", 0, "stop after this many frames (0 = run until interrupted)")
}

func runGrab(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		configMgr.SetLogLevel(viper.GetString("log_level"))
	}
	if viper.IsSet("frame_interval_ms") && viper.GetInt("frame_interval_ms") > 0 {
		configMgr.SetFrameIntervalMS(viper.GetInt("frame_interval_ms"))
	}
	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	log := logger.WithComponent("grab")

	src, cleanup, err := resolveSource(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	boot := x11.Bootstrap{FrameInterval: cfg.FrameInterval()}
	pipe, err := capture.New(boot, src, grabCursor || cfg.CaptureCursor)
	if err != nil {
		return fmt.Errorf("failed to construct pipeline: %w", err)
	}
	defer pipe.Stop()

	if err := pipe.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	log.Info().Str("source", src.Name()).Msg("capture started, press Ctrl+C to stop")

	// Stop unblocks a pending Grab; the loop then sees the stream end.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("interrupted, stopping capture")
		pipe.Stop()
	}()

	var (
		grabbed    int
		windowSecs = time.Now()
		windowN    int
	)
	for grabFrames <= 0 || grabbed < grabFrames {
		handle, err := pipe.Grab()
		if err != nil {
			var capErr *capture.CaptureError
			if errors.As(err, &capErr) {
				// Recoverable: the pipeline stays started.
				log.Warn().Err(err).Msg("frame capture failed, retrying")
				continue
			}
			return err
		}
		if handle == nil {
			log.Info().Msg("stream ended")
			break
		}

		grabbed++
		windowN++
		if elapsed := time.Since(windowSecs); elapsed >= time.Second {
			width, height := handle.Staging.Bounds()
			log.Info().
				Float64("fps", float64(windowN)/elapsed.Seconds()).
				Int("width", width).
				Int("height", height).
				Int("row_pitch", handle.Mapped.RowPitch).
				Uint64("dropped", pipe.DroppedFrames()).
				Msg("capturing")
			windowSecs = time.Now()
			windowN = 0
		}
	}

	log.Info().
		Int("frames", grabbed).
		Uint64("dropped", pipe.DroppedFrames()).
		Msg("capture finished")
	return nil
}

// resolveSource picks the capturable from flags, falling back to the
// configured display.
func resolveSource(cfg config.Config) (source.Capturable, func(), error) {
	switch {
	case grabWindowID != "":
		id, err := strconv.ParseUint(grabWindowID, 0, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid window ID %q: %w", grabWindowID, err)
		}
		win, err := source.OpenWindow(uint32(id))
		if err != nil {
			return nil, nil, err
		}
		return win, func() { win.Close() }, nil
	case grabWindow != "":
		win, err := source.FindWindow(grabWindow)
		if err != nil {
			return nil, nil, err
		}
		return win, func() { win.Close() }, nil
	default:
		index := grabDisplay
		if index < 0 {
			index = cfg.Display
		}
		disp, err := source.OpenDisplay(index)
		if err != nil {
			return nil, nil, err
		}
		return disp, func() { disp.Close() }, nil
	}
}
