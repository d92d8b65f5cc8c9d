package processor_test

import (
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/interface/raster"
	"github.com/airbusgeo/s2-indices/processor"
	"github.com/airbusgeo/s2-indices/service"
)

func uniformBand(band common.Band, width, height int, value uint16) *raster.BandRaster {
	r := &raster.BandRaster{
		Band:         band,
		Width:        width,
		Height:       height,
		GeoTransform: [6]float64{139.69, 0.001, 0, 35.70, 0, -0.001},
		Data:         make([]uint16, width*height),
	}
	for i := range r.Data {
		r.Data[i] = value
	}
	return r
}

func writeBands(prefix string, bands ...*raster.BandRaster) {
	for _, b := range bands {
		Expect(b.Save(common.BandFileName(prefix, b.Band))).To(Succeed())
	}
}

func readPNG(file string) ([]byte, *color.RGBA) {
	b, err := os.ReadFile(file)
	Expect(err).NotTo(HaveOccurred())
	f, err := os.Open(file)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()
	img, err := png.Decode(f)
	Expect(err).NotTo(HaveOccurred())
	r, g, bl, a := img.At(0, 0).RGBA()
	return b, &color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: uint8(a >> 8)}
}

var _ = Describe("NormalizedDifference", func() {
	It("computes (p-n)/(p+n)", func() {
		nir := uniformBand(common.BandNIR, 2, 2, 300)
		red := uniformBand(common.BandRed, 2, 2, 100)
		res, err := processor.NormalizedDifference(processor.NDVI, nir, red)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Values).To(Equal([]float32{0.5, 0.5, 0.5, 0.5}))
	})

	It("sets 0 where the denominator is zero", func() {
		nir := &raster.BandRaster{Band: common.BandNIR, Width: 3, Height: 1, Data: []uint16{0, 10, 0}}
		red := &raster.BandRaster{Band: common.BandRed, Width: 3, Height: 1, Data: []uint16{0, 0, 10}}
		res, err := processor.NormalizedDifference(processor.NDVI, nir, red)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Values).To(Equal([]float32{0, 1, -1}))
		min, max := res.MinMax()
		Expect(min).To(Equal(float32(-1)))
		Expect(max).To(Equal(float32(1)))
	})

	It("keeps values in [-1, 1]", func() {
		p := &raster.BandRaster{Width: 4, Height: 1, Data: []uint16{65535, 1, 0, 12345}}
		n := &raster.BandRaster{Width: 4, Height: 1, Data: []uint16{1, 65535, 7, 54321}}
		res, err := processor.NormalizedDifference(processor.MNDWI, p, n)
		Expect(err).NotTo(HaveOccurred())
		for _, v := range res.Values {
			Expect(v).To(BeNumerically(">=", -1))
			Expect(v).To(BeNumerically("<=", 1))
		}
	})

	It("fails on shape mismatch", func() {
		_, err := processor.NormalizedDifference(processor.MNDWI, uniformBand(common.BandGreen, 4, 4, 1), uniformBand(common.BandSWIR, 2, 2, 1))
		var mismatch service.ErrShapeMismatch
		Expect(errors.As(err, &mismatch)).To(BeTrue())
		Expect(mismatch.Width1).To(Equal(4))
		Expect(mismatch.Width2).To(Equal(2))
	})
})

var _ = Describe("Render", func() {
	It("maps a uniform value to a single color", func() {
		res := &processor.IndexResult{Index: processor.NDVI, Width: 3, Height: 2, Values: []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}}
		img := processor.Render(res, "", false)
		Expect(img.Bounds().Dx()).To(Equal(3))
		Expect(img.Bounds().Dy()).To(Equal(2))
		c := img.RGBAAt(0, 0)
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				Expect(img.RGBAAt(x, y)).To(Equal(c))
			}
		}
		Expect(c.A).To(Equal(uint8(255)))
	})

	It("uses the colormap extremities for -1 and 1", func() {
		res := &processor.IndexResult{Index: processor.NDVI, Width: 2, Height: 1, Values: []float32{-1, 1}}
		img := processor.Render(res, "", false)
		low, high := img.RGBAAt(0, 0), img.RGBAAt(1, 0)
		// RdYlGn: red to green
		Expect(low.R).To(BeNumerically(">", low.G))
		Expect(high.G).To(BeNumerically(">", high.R))
	})

	It("adds a legend", func() {
		res := &processor.IndexResult{Index: processor.MNDWI, Width: 10, Height: 10, Values: make([]float32, 100)}
		img := processor.Render(res, "MNDWI Analysis: test", true)
		Expect(img.Bounds().Dx()).To(BeNumerically(">", 10))
		Expect(img.Bounds().Dy()).To(BeNumerically(">", 10))
	})
})

var _ = Describe("Analyze", func() {
	var prefix string
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp(workdir, "analyze")
		Expect(err).NotTo(HaveOccurred())
		prefix = filepath.Join(dir, "sentinel2_2023-08-14")
	})

	Context("with NDVI bands only", func() {
		BeforeEach(func() {
			writeBands(prefix, uniformBand(common.BandRed, 8, 8, 100), uniformBand(common.BandNIR, 8, 8, 300))
		})

		It("renders NDVI and skips MNDWI", func() {
			report, err := processor.Analyze(ctx, prefix, processor.Options{Legend: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outputs).To(HaveLen(1))
			Expect(report.Outputs[0].Index).To(Equal("NDVI"))
			Expect(report.Outputs[0].File).To(Equal(prefix + "_NDVI_result.png"))
			Expect(report.Outputs[0].Min).To(Equal(float32(0.5)))
			Expect(report.Outputs[0].Max).To(Equal(float32(0.5)))
			Expect(report.Skipped).To(Equal([]string{"MNDWI"}))
			Expect(prefix + "_NDVI_result.png").To(BeAnExistingFile())
			Expect(prefix + "_MNDWI_result.png").NotTo(BeAnExistingFile())
		})

		It("is deterministic", func() {
			_, err := processor.Analyze(ctx, prefix, processor.Options{Legend: true})
			Expect(err).NotTo(HaveOccurred())
			first, _ := readPNG(prefix + "_NDVI_result.png")
			_, err = processor.Analyze(ctx, prefix, processor.Options{Legend: true})
			Expect(err).NotTo(HaveOccurred())
			second, _ := readPNG(prefix + "_NDVI_result.png")
			Expect(second).To(Equal(first))
		})

		It("renders a uniform heatmap without legend", func() {
			_, err := processor.Analyze(ctx, prefix, processor.Options{})
			Expect(err).NotTo(HaveOccurred())
			_, c := readPNG(prefix + "_NDVI_result.png")
			res := &processor.IndexResult{Index: processor.NDVI, Width: 1, Height: 1, Values: []float32{0.5}}
			expected := processor.Render(res, "", false).RGBAAt(0, 0)
			Expect(*c).To(Equal(expected))
		})

		It("exports the results", func() {
			export := filepath.Join(dir, "export")
			storage, err := service.NewStorageStrategy(ctx, export, service.S3Options{})
			Expect(err).NotTo(HaveOccurred())
			report, err := processor.Analyze(ctx, prefix, processor.Options{Storage: storage})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outputs[0].URI).To(Equal(filepath.Join(export, "sentinel2_2023-08-14_NDVI_result.png")))
			Expect(report.Outputs[0].URI).To(BeAnExistingFile())
		})
	})

	Context("with all bands", func() {
		It("renders both indices", func() {
			writeBands(prefix,
				uniformBand(common.BandRed, 8, 8, 100), uniformBand(common.BandNIR, 8, 8, 300),
				uniformBand(common.BandGreen, 8, 8, 500), uniformBand(common.BandSWIR, 8, 8, 500))
			report, err := processor.Analyze(ctx, prefix, processor.Options{Legend: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outputs).To(HaveLen(2))
			Expect(report.Outputs[1].Index).To(Equal("MNDWI"))
			Expect(report.Outputs[1].Max).To(Equal(float32(0)))
			Expect(report.Skipped).To(BeEmpty())
			Expect(prefix + "_MNDWI_result.png").To(BeAnExistingFile())
		})

		It("fails on shape mismatch", func() {
			writeBands(prefix,
				uniformBand(common.BandRed, 8, 8, 100), uniformBand(common.BandNIR, 8, 8, 300),
				uniformBand(common.BandGreen, 8, 8, 500), uniformBand(common.BandSWIR, 4, 4, 500))
			_, err := processor.Analyze(ctx, prefix, processor.Options{})
			var mismatch service.ErrShapeMismatch
			Expect(errors.As(err, &mismatch)).To(BeTrue())
			Expect(mismatch.File1).To(Equal(prefix + "_B03.tif"))
			Expect(mismatch.File2).To(Equal(prefix + "_B11.tif"))
			Expect(service.Kind(err)).To(Equal(service.KindData))
		})
	})

	Context("with an unreadable MNDWI band", func() {
		It("fails instead of skipping MNDWI", func() {
			writeBands(prefix, uniformBand(common.BandRed, 8, 8, 100), uniformBand(common.BandNIR, 8, 8, 300))
			// A symbolic link to itself cannot be resolved (ELOOP)
			loop := prefix + "_B03.tif"
			Expect(os.Symlink(loop, loop)).To(Succeed())
			report, err := processor.Analyze(ctx, prefix, processor.Options{})
			Expect(err).To(HaveOccurred())
			var missing service.ErrMissingBandFile
			Expect(errors.As(err, &missing)).To(BeFalse())
			Expect(report.Skipped).To(BeEmpty())
			Expect(report.Outputs).To(HaveLen(1))
		})
	})

	Context("without B04", func() {
		It("fails with a missing band file", func() {
			writeBands(prefix, uniformBand(common.BandNIR, 8, 8, 300))
			_, err := processor.Analyze(ctx, prefix, processor.Options{})
			var missing service.ErrMissingBandFile
			Expect(errors.As(err, &missing)).To(BeTrue())
			Expect(missing.File).To(Equal(prefix + "_B04.tif"))
			Expect(prefix + "_NDVI_result.png").NotTo(BeAnExistingFile())
		})
	})
})
