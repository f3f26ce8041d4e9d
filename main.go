package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/df07/go-diffraction-glare/pkg/aperture"
	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/df07/go-diffraction-glare/pkg/loaders"
	"github.com/df07/go-diffraction-glare/pkg/renderer"
	"github.com/df07/go-diffraction-glare/web/server"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	xdraw "golang.org/x/image/draw"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "glare",
		Short:         "Progressive spectral diffraction and glare renderer",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			core.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log per-step timing to stderr")

	root.AddCommand(newRenderCmd(), newOutlineCmd(), newServeCmd())
	return root
}

// paramFlags binds the command line overrides for config.Params. Only
// flags the user actually set replace file values.
type paramFlags struct {
	configPath string
	params     config.Params
}

func (pf *paramFlags) register(fs *pflag.FlagSet, withView bool) {
	d := config.Default()
	fs.StringVarP(&pf.configPath, "config", "c", "", "Parameter file (.toml, .yaml, .yml or .json)")
	fs.IntVar(&pf.params.Aperture.EdgeCount, "edges", d.Aperture.EdgeCount, "Number of aperture edges")
	fs.Float64Var(&pf.params.Aperture.CurvatureRadius, "radius", d.Aperture.CurvatureRadius, "Edge curvature radius (<= 0 for straight edges)")
	fs.IntVar(&pf.params.Aperture.ArcPoints, "arc-points", d.Aperture.ArcPoints, "Subdivision points per curved edge")
	fs.Float64Var(&pf.params.Aperture.Rotation, "rotation", d.Aperture.Rotation, "Aperture rotation in radians")
	if !withView {
		return
	}
	fs.StringVar((*string)(&pf.params.Mode), "mode", string(d.Mode), "Pipeline: diffraction or glare")
	fs.IntVar(&pf.params.Aperture.Oversample, "oversample", d.Aperture.Oversample, "Sub-pixel samples per pixel side")
	fs.IntVar(&pf.params.Spectrum.Count, "wavelengths", d.Spectrum.Count, "Number of wavelength samples")
	fs.IntVar(&pf.params.View.Width, "width", d.View.Width, "Image width in pixels")
	fs.IntVar(&pf.params.View.Height, "height", d.View.Height, "Image height in pixels")
	fs.Float64Var(&pf.params.View.LogScale, "log-scale", d.View.LogScale, "log10 of the angular scale")
	fs.Float64Var(&pf.params.View.LogExposure, "log-exposure", d.View.LogExposure, "log10 of the exposure")
	fs.StringVar(&pf.params.Glare.Source, "glare-source", "", "PSF image used as glare input instead of a point source")
}

// resolve loads the config file, if any, then applies the changed flags
func (pf *paramFlags) resolve(fs *pflag.FlagSet) (config.Params, error) {
	p := config.Default()
	if pf.configPath != "" {
		loaded, err := config.Load(pf.configPath)
		if err != nil {
			return config.Params{}, err
		}
		p = loaded
	}
	pf.apply(fs, &p)
	return p.Clamp(), nil
}

func (pf *paramFlags) apply(fs *pflag.FlagSet, p *config.Params) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "edges":
			p.Aperture.EdgeCount = pf.params.Aperture.EdgeCount
		case "radius":
			p.Aperture.CurvatureRadius = pf.params.Aperture.CurvatureRadius
		case "arc-points":
			p.Aperture.ArcPoints = pf.params.Aperture.ArcPoints
		case "rotation":
			p.Aperture.Rotation = pf.params.Aperture.Rotation
		case "mode":
			p.Mode = pf.params.Mode
		case "oversample":
			p.Aperture.Oversample = pf.params.Aperture.Oversample
		case "wavelengths":
			p.Spectrum.Count = pf.params.Spectrum.Count
		case "width":
			p.View.Width = pf.params.View.Width
		case "height":
			p.View.Height = pf.params.View.Height
		case "log-scale":
			p.View.LogScale = pf.params.View.LogScale
		case "log-exposure":
			p.View.LogExposure = pf.params.View.LogExposure
		case "glare-source":
			p.Glare.Source = pf.params.Glare.Source
		}
	})
}

// overrideSource re-applies the command line flags to every snapshot of a
// file-backed source so --watch keeps honoring them.
type overrideSource struct {
	src   config.Source
	flags *paramFlags
	fs    *pflag.FlagSet
}

func (o overrideSource) Current() config.Params {
	p := o.src.Current()
	o.flags.apply(o.fs, &p)
	return p.Clamp()
}

type renderOptions struct {
	output  string
	workers int
	inset   int
	watch   bool
}

func newRenderCmd() *cobra.Command {
	var pf paramFlags
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an image to completion and save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if opts.output == "" {
				opts.output = defaultOutputPath(p, time.Now())
			}
			if opts.watch {
				if pf.configPath == "" {
					return errors.New("--watch requires --config")
				}
				return watchRender(cmd, &pf, opts)
			}
			return renderOnce(cmd, p, opts)
		},
	}
	pf.register(cmd.Flags(), true)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (.png or .jpg), defaults to output/<mode>/render_<timestamp>.png")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Number of render workers (0 = CPU count)")
	cmd.Flags().IntVar(&opts.inset, "inset", 0, "Composite an aperture outline preview of this size into the top-left corner")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-render whenever the config file changes")
	return cmd
}

func defaultOutputPath(p config.Params, now time.Time) string {
	return filepath.Join("output", string(p.Mode), fmt.Sprintf("render_%s.png", now.Format("20060102_150405")))
}

func newRenderer(workers int) (*renderer.Renderer, renderer.Backend) {
	backend := renderer.NewCPUBackend(workers)
	opts := renderer.DefaultOptions()
	opts.PSF = loaders.SourcePSF
	return renderer.NewRenderer(backend, opts), backend
}

func renderOnce(cmd *cobra.Command, p config.Params, opts renderOptions) error {
	out := termenv.NewOutput(cmd.OutOrStdout())
	rend, backend := newRenderer(opts.workers)
	defer backend.Close()

	rend.Update(p)
	if !rend.Valid() {
		return fmt.Errorf("%w: %d edges with curvature radius %g", aperture.ErrInvalidGeometry,
			p.Aperture.EdgeCount, p.Aperture.CurvatureRadius)
	}

	start := time.Now()
	for rend.Computing() {
		stats, err := rend.Step(cmd.Context())
		if err != nil {
			return err
		}
		printProgress(out, stats)
	}
	fmt.Fprintln(out)

	frame := rend.Frame()
	if err := addInset(frame, p.Aperture, opts.inset); err != nil {
		return err
	}
	if err := saveImage(opts.output, frame); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s in %v\n",
		out.String("saved").Foreground(out.Color("2")).Bold(),
		opts.output, time.Since(start).Round(time.Millisecond))
	return nil
}

func watchRender(cmd *cobra.Command, pf *paramFlags, opts renderOptions) error {
	out := termenv.NewOutput(cmd.OutOrStdout())
	files, err := config.NewFileSource(pf.configPath)
	if err != nil {
		return err
	}
	defer files.Close()

	rend, backend := newRenderer(opts.workers)
	defer backend.Close()

	fmt.Fprintf(out, "watching %s, press Ctrl+C to stop\n", out.String(pf.configPath).Underline())
	loop := &renderer.Loop{
		Renderer: rend,
		Source:   overrideSource{src: files, flags: pf, fs: cmd.Flags()},
		Surface:  watchSurface(out, rend, opts),
	}

	err = loop.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchSurface prints progress while a render runs and saves the frame
// whenever the renderer is idle. Idle frames are only presented after a
// parameter change, so an exposure edit re-saves without recomputing.
func watchSurface(out *termenv.Output, rend *renderer.Renderer, opts renderOptions) renderer.Surface {
	return renderer.SurfaceFunc(func(frame *image.RGBA, stats renderer.StepStats) error {
		if !rend.Valid() {
			fmt.Fprintf(out, "\n%s aperture geometry, waiting for a valid config\n",
				out.String("invalid").Foreground(out.Color("1")).Bold())
			return nil
		}
		if !stats.Done {
			printProgress(out, stats)
			return nil
		}
		if err := addInset(frame, rend.Params().Aperture, opts.inset); err != nil {
			return err
		}
		if err := saveImage(opts.output, frame); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s %s\n", out.String("saved").Foreground(out.Color("2")).Bold(), opts.output)
		return nil
	})
}

func printProgress(out *termenv.Output, stats renderer.StepStats) {
	out.ClearLine()
	fmt.Fprintf(out, "\r%s %5.1f%%  rows %d-%d  %d lines/step  %v",
		out.String("rendering").Foreground(out.Color("6")),
		stats.Completed*100, stats.Band.Y0, stats.Band.Y1, stats.LinesPerStep,
		stats.Duration.Round(time.Microsecond))
}

// addInset draws the aperture outline preview into the top-left corner
func addInset(frame *image.RGBA, a config.Aperture, size int) error {
	if size <= 0 {
		return nil
	}
	outline, err := aperture.NewOutline(a)
	if err != nil {
		return err
	}
	preview, err := outline.Draw(size)
	if err != nil {
		return err
	}

	b := frame.Bounds()
	side := min(size, b.Dx(), b.Dy())
	dst := image.Rect(b.Min.X, b.Min.Y, b.Min.X+side, b.Min.Y+side)
	if side == size {
		draw.Draw(frame, dst, preview, preview.Bounds().Min, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(frame, dst, preview, preview.Bounds(), draw.Src, nil)
	}
	return nil
}

func saveImage(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var encoder imgio.Encoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encoder = imgio.PNGEncoder()
	case ".jpg", ".jpeg":
		encoder = imgio.JPEGEncoder(95)
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
	if err := imgio.Save(path, img, encoder); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

func newOutlineCmd() *cobra.Command {
	var pf paramFlags
	var output string
	var size int

	cmd := &cobra.Command{
		Use:   "outline",
		Short: "Write the aperture outline as PNG or SVG",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if err := writeOutline(output, p.Aperture, size); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	pf.register(cmd.Flags(), false)
	cmd.Flags().StringVarP(&output, "output", "o", "aperture.png", "Output file (.png, .jpg or .svg)")
	cmd.Flags().IntVar(&size, "size", 256, "Preview size in pixels for raster output")
	return cmd
}

func writeOutline(path string, a config.Aperture, size int) error {
	outline, err := aperture.NewOutline(a)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".svg") {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := outline.WriteSVG(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	img, err := outline.Draw(size)
	if err != nil {
		return err
	}
	return saveImage(path, img)
}

func newServeCmd() *cobra.Command {
	var pf paramFlags
	var port, workers int
	var static string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the interactive web host",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			// The web host reports lifecycle at Info
			core.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo})))

			backend := renderer.NewCPUBackend(workers)
			defer backend.Close()

			srv := server.NewServer(port, backend, config.NewMutableSource(p))
			srv.SetStaticDir(static)
			srv.SetPSF(loaders.SourcePSF)
			return srv.Start()
		},
	}
	pf.register(cmd.Flags(), true)
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to serve on")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of render workers (0 = CPU count)")
	cmd.Flags().StringVar(&static, "static", "web/static/", "Directory served at /")
	return cmd
}
