// Command oidndenoise denoises a PNG image with Open Image Denoise.
//
// The input is treated as an sRGB-encoded LDR render by default; pass
// -hdr for linear HDR data. Optional albedo and normal images improve
// quality when available from the renderer.
package main

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"

	"github.com/gogpu/oidn"
)

func main() {
	var (
		input   = flag.String("input", "", "noisy input PNG")
		output  = flag.String("output", "denoised.png", "output PNG")
		albedo  = flag.String("albedo", "", "optional albedo PNG")
		normal  = flag.String("normal", "", "optional normal PNG (requires -albedo)")
		quality = flag.String("quality", "default", "denoise quality: default, balanced or high")
		hdr     = flag.Bool("hdr", false, "treat the input as linear HDR instead of sRGB")
	)
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *normal != "" && *albedo == "" {
		log.Fatal("-normal requires -albedo")
	}

	pixels, w, h := loadPNG(*input)

	device := oidn.NewDevice()
	defer device.Close()

	filter := oidn.NewRayTracing(device)
	defer filter.Close()

	filter.SetHDR(*hdr).
		SetSRGB(!*hdr).
		SetQuality(parseQuality(*quality)).
		SetImageDimensions(w, h)

	if *albedo != "" {
		alb, aw, ah := loadPNG(*albedo)
		if aw != w || ah != h {
			log.Fatalf("albedo is %dx%d, color is %dx%d", aw, ah, w, h)
		}
		if *normal != "" {
			nrm, nw, nh := loadPNG(*normal)
			if nw != w || nh != h {
				log.Fatalf("normal is %dx%d, color is %dx%d", nw, nh, w, h)
			}
			filter.SetAlbedoNormal(alb, nrm)
		} else {
			filter.SetAlbedo(alb)
		}
	}

	if err := filter.FilterInPlace(pixels); err != nil {
		log.Fatalf("Denoise failed: %v", err)
	}
	if err := device.Err(); err != nil {
		log.Fatalf("Engine error: %v", err)
	}

	savePNG(*output, pixels, w, h)
	log.Printf("Denoised %s -> %s (%dx%d)", *input, *output, w, h)
}

func parseQuality(s string) oidn.Quality {
	switch s {
	case "default":
		return oidn.QualityDefault
	case "balanced":
		return oidn.QualityBalanced
	case "high":
		return oidn.QualityHigh
	default:
		log.Fatalf("unknown quality %q", s)
		return oidn.QualityDefault
	}
}

// loadPNG decodes a PNG into a flat 3-channel float32 image in [0, 1].
func loadPNG(path string) ([]float32, int, int) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		log.Fatalf("Failed to decode %s: %v", path, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]float32, 3*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := 3 * (y*w + x)
			pixels[i] = float32(r) / 65535
			pixels[i+1] = float32(g) / 65535
			pixels[i+2] = float32(b) / 65535
		}
	}
	return pixels, w, h
}

// savePNG clamps a flat 3-channel float32 image to 8-bit and writes it.
func savePNG(path string, pixels []float32, w, h int) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 3 * (y*w + x)
			img.SetRGBA(x, y, color.RGBA{
				R: clamp8(pixels[i]),
				G: clamp8(pixels[i+1]),
				B: clamp8(pixels[i+2]),
				A: 255,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		log.Fatalf("Failed to encode %s: %v", path, err)
	}
}

func clamp8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
