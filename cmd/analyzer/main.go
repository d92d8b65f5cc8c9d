package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/airbusgeo/godal"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/airbusgeo/s2-indices/processor"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/log"
)

type config struct {
	Prefix     string
	NoLegend   bool
	StorageURI string
	S3         service.S3Options
	Debug      bool
}

func getenv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

func newAppConfig() (*config, error) {
	// Optional .env file
	_ = godotenv.Load()

	config := config{}
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] prefix\n  Computes NDVI (and MNDWI) from <prefix>_<band>.tif files\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.BoolVar(&config.NoLegend, "no-legend", false, "render the heatmaps without title and colorbar")
	flag.StringVar(&config.StorageURI, "storage-uri", getenv("STORAGE_URI", ""), "export the results to this storage (local directory, gs://bucket/prefix, s3://bucket/prefix)")
	flag.BoolVar(&config.Debug, "debug", false, "debug logs")
	config.S3 = service.S3Options{
		AccessKeyID:     getenv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getenv("S3_SECRET_ACCESS_KEY", ""),
		Region:          getenv("S3_REGION", ""),
		Endpoint:        getenv("S3_ENDPOINT", ""),
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return nil, service.ErrInvalidInput{Reason: "exactly one prefix is required"}
	}
	config.Prefix = flag.Arg(0)
	return &config, nil
}

func main() {
	ctx := context.Background()
	err := run(ctx)
	if err != nil {
		log.Fatal("error", zap.String("kind", string(service.Kind(err))), zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}
	log.SetDebug(config.Debug)
	godal.RegisterAll()

	opts := processor.Options{Legend: !config.NoLegend}
	if config.StorageURI != "" {
		if opts.Storage, err = service.NewStorageStrategy(ctx, config.StorageURI, config.S3); err != nil {
			return err
		}
	}

	report, err := processor.Analyze(ctx, config.Prefix, opts)
	if err != nil {
		return err
	}
	for _, o := range report.Outputs {
		fmt.Printf("%s (min: %.2f, max: %.2f): %s\n", o.Index, o.Min, o.Max, o.File)
		if o.URI != "" {
			fmt.Printf("Exported: %s\n", o.URI)
		}
	}
	for _, s := range report.Skipped {
		fmt.Printf("%s skipped: missing band files\n", s)
	}
	fmt.Println("Done")
	return nil
}
