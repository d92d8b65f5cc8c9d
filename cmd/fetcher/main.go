package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/airbusgeo/godal"
	"github.com/araddon/dateparse"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/airbusgeo/s2-indices/catalog"
	"github.com/airbusgeo/s2-indices/catalog/entities"
	"github.com/airbusgeo/s2-indices/common"
	"github.com/airbusgeo/s2-indices/downloader"
	"github.com/airbusgeo/s2-indices/interface/catalog/stac"
	"github.com/airbusgeo/s2-indices/interface/locator"
	"github.com/airbusgeo/s2-indices/interface/locator/nominatim"
	"github.com/airbusgeo/s2-indices/interface/raster"
	"github.com/airbusgeo/s2-indices/service"
	"github.com/airbusgeo/s2-indices/service/geometry"
	"github.com/airbusgeo/s2-indices/service/log"
)

type config struct {
	Address             string
	Point               string
	IndexType           common.IndexType
	MaxCloudCover       float64
	StartDate           string
	EndDate             string
	BBoxSize            float64
	Save                bool
	Output              string
	CoordOnly           bool
	RequireFullCoverage bool
	Archive             bool

	STACURL     string
	Collection  string
	SASURL      string
	GeocoderURL string
	UserAgent   string
	VSIMode     string
	HTTPRetries int
	Timeout     time.Duration

	StorageURI string
	S3         service.S3Options

	Debug bool
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

	config := config{IndexType: common.IndexTypePreview}
	registerFlags(flag.CommandLine, &config)
	flag.Parse()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func registerFlags(fs *flag.FlagSet, config *config) {
	// Location
	fs.StringVar(&config.Address, "address", "", "address or place name to search (exclusive with -point)")
	fs.StringVar(&config.Address, "a", "", "shorthand for -address")
	fs.StringVar(&config.Point, "point", "", "coordinate 'lon,lat' in degrees (exclusive with -address)")
	fs.StringVar(&config.Point, "p", "", "shorthand for -point")
	fs.Float64Var(&config.BBoxSize, "bbox-size", 0.01, "half-size in degrees of the bounding box around the location")
	fs.Float64Var(&config.BBoxSize, "b", 0.01, "shorthand for -bbox-size")
	fs.BoolVar(&config.CoordOnly, "coord-only", false, "print the coordinate of the location and exit")

	// Search
	fs.Var(&config.IndexType, "index", "products to fetch: "+strings.Join(common.IndexTypeStrings(), "|"))
	fs.Var(&config.IndexType, "i", "shorthand for -index")
	fs.Float64Var(&config.MaxCloudCover, "cloud-cover", entities.DefaultMaxCloudCover, "maximum cloud cover (%)")
	fs.Float64Var(&config.MaxCloudCover, "c", entities.DefaultMaxCloudCover, "shorthand for -cloud-cover")
	fs.StringVar(&config.StartDate, "start-date", "2023-01-01", "start of the search interval")
	fs.StringVar(&config.StartDate, "s", "2023-01-01", "shorthand for -start-date")
	fs.StringVar(&config.EndDate, "end-date", "", "end of the search interval (default: today)")
	fs.StringVar(&config.EndDate, "e", "", "shorthand for -end-date")
	fs.BoolVar(&config.RequireFullCoverage, "require-full-coverage", false, "only select scenes whose footprint contains the bounding box")

	// Outputs
	fs.BoolVar(&config.Save, "save", false, "save the bands (and the preview) as files")
	fs.StringVar(&config.Output, "output", "", "prefix of the output files (default: "+common.DefaultOutputPattern+" of the scene)")
	fs.StringVar(&config.Output, "o", "", "shorthand for -output")
	fs.BoolVar(&config.Archive, "archive", false, "also zip the saved files into <output>.zip")
	fs.StringVar(&config.StorageURI, "storage-uri", getenv("STORAGE_URI", ""), "export the saved files to this storage (local directory, gs://bucket/prefix, s3://bucket/prefix)")
	config.S3 = service.S3Options{
		AccessKeyID:     getenv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getenv("S3_SECRET_ACCESS_KEY", ""),
		Region:          getenv("S3_REGION", ""),
		Endpoint:        getenv("S3_ENDPOINT", ""),
	}

	// Services
	fs.StringVar(&config.STACURL, "stac-url", getenv("STAC_URL", stac.PlanetaryComputerURL), "STAC API root url")
	fs.StringVar(&config.Collection, "collection", getenv("STAC_COLLECTION", entities.DefaultCollection), "STAC collection")
	fs.StringVar(&config.SASURL, "sas-url", getenv("SAS_URL", stac.PlanetaryComputerSASURL), "Planetary Computer SAS API url to sign the assets ('' to disable)")
	fs.StringVar(&config.GeocoderURL, "geocoder-url", getenv("GEOCODER_URL", nominatim.DefaultURL), "Nominatim API url")
	fs.StringVar(&config.UserAgent, "user-agent", getenv("GEOCODER_USER_AGENT", nominatim.DefaultUserAgent), "User-Agent sent to the geocoder")
	fs.StringVar(&config.VSIMode, "vsi", raster.VSIOsio, "how remote rasters are read: "+raster.VSIOsio+" (range-reading adapter) or "+raster.VSICurl+" (GDAL /vsicurl/)")
	fs.IntVar(&config.HTTPRetries, "http-retries", 0, "number of retries of the api calls in case of temporary errors")
	fs.DurationVar(&config.Timeout, "timeout", 0, "maximum duration of the run (0: none)")
	fs.BoolVar(&config.Debug, "debug", false, "debug logs")
}

func (config *config) validate() error {
	if (config.Address == "") == (config.Point == "") {
		return service.ErrInvalidInput{Reason: "exactly one of -address or -point is required"}
	}
	if config.BBoxSize <= 0 {
		return service.ErrInvalidInput{Reason: fmt.Sprintf("bbox-size must be strictly positive: %v", config.BBoxSize)}
	}
	if config.VSIMode != raster.VSIOsio && config.VSIMode != raster.VSICurl {
		return service.ErrInvalidInput{Reason: fmt.Sprintf("unknown vsi mode: %s", config.VSIMode)}
	}
	if config.Timeout < 0 {
		return service.ErrInvalidInput{Reason: fmt.Sprintf("negative timeout: %v", config.Timeout)}
	}
	return nil
}

// parsePoint parses "lon,lat" or "lon lat"
func parsePoint(s string) (common.Coordinate, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	if len(parts) != 2 {
		return common.Coordinate{}, service.ErrInvalidInput{Reason: fmt.Sprintf("point must be 'lon,lat': %s", s)}
	}
	lon, err1 := strconv.ParseFloat(parts[0], 64)
	lat, err2 := strconv.ParseFloat(parts[1], 64)
	c := common.Coordinate{Lon: lon, Lat: lat}
	if err1 != nil || err2 != nil || !c.Valid() {
		return common.Coordinate{}, service.ErrInvalidInput{Reason: fmt.Sprintf("invalid point: %s", s)}
	}
	return c, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, service.ErrInvalidInput{Reason: fmt.Sprintf("invalid date '%s': %v", s, err)}
	}
	return d, nil
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
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}
	// A request cannot outlive the run. /vsicurl/ reads are bounded by GDAL_HTTP_TIMEOUT
	client := service.HTTPClient(config.Timeout)
	if config.Timeout > 0 {
		os.Setenv("GDAL_HTTP_TIMEOUT", strconv.Itoa(int(math.Ceil(config.Timeout.Seconds()))))
	}

	// Locate
	var coord common.Coordinate
	if config.Point != "" {
		if coord, err = parsePoint(config.Point); err != nil {
			return err
		}
	} else {
		var geocoder locator.Geocoder = nominatim.NewGeocoder(config.GeocoderURL, config.UserAgent, client, config.HTTPRetries)
		if coord, err = geocoder.Geocode(ctx, config.Address); err != nil {
			return err
		}
		log.Logger(ctx).Sugar().Infof("'%s' located at lon=%f lat=%f", config.Address, coord.Lon, coord.Lat)
	}
	if config.CoordOnly {
		fmt.Printf("%f,%f\n", coord.Lon, coord.Lat)
		return nil
	}

	// Search
	query := entities.SceneQuery{
		Point:               coord,
		MaxCloudCover:       config.MaxCloudCover,
		IndexType:           config.IndexType,
		Collection:          config.Collection,
		RequireFullCoverage: config.RequireFullCoverage,
	}
	if query.BBox, err = geometry.BBox(coord, config.BBoxSize); err != nil {
		return service.ErrInvalidInput{Reason: err.Error()}
	}
	if query.StartTime, err = parseDate(config.StartDate); err != nil {
		return err
	}
	if query.EndTime, err = parseDate(config.EndDate); err != nil {
		return err
	}
	c := catalog.Catalog{Provider: stac.NewProvider(config.STACURL, client, config.HTTPRetries)}
	if config.SASURL != "" {
		c.Signer = stac.NewSASSigner(config.SASURL, client, config.HTTPRetries)
	}
	scene, err := c.Search(ctx, query)
	if err != nil {
		return err
	}
	fmt.Printf("Scene: %s (%s, cloud cover: %.2f%%)\n", scene.SourceID, scene.Date.Format("2006-01-02"), scene.CloudCover)

	// Fetch
	godal.RegisterAll()
	if err := raster.RegisterHTTPHandler(ctx, config.VSIMode, client); err != nil {
		return err
	}
	f := downloader.Fetcher{Client: client, VSIMode: config.VSIMode}
	if config.StorageURI != "" && config.Save {
		if f.Storage, err = service.NewStorageStrategy(ctx, config.StorageURI, config.S3); err != nil {
			return err
		}
	}
	output := config.Output
	if output == "" {
		output = common.OutputPrefix(common.DefaultOutputPattern, *scene)
	}
	res, err := f.FetchScene(ctx, *scene, downloader.Options{
		IndexType: config.IndexType,
		BBox:      query.BBox,
		Save:      config.Save,
		OutputDir: filepath.Dir(output),
		Prefix:    filepath.Base(output),
	})
	if err != nil {
		return err
	}

	if config.Archive && len(res.Files) > 0 {
		zip := output + ".zip"
		if err := service.Archive(res.Files, zip); err != nil {
			return err
		}
		res.Files = append(res.Files, zip)
		if f.Storage != nil {
			uri, err := f.Storage.SaveFile(ctx, zip)
			if err != nil {
				return err
			}
			res.URIs = append(res.URIs, uri)
		}
	}

	// Report
	if res.PreviewURL != "" && !config.Save {
		fmt.Printf("Preview: %s\n", res.PreviewURL)
	}
	for _, b := range res.Bands {
		fmt.Printf("Band %s: %dx%d pixels\n", b.Band, b.Width, b.Height)
	}
	for _, file := range res.Files {
		fmt.Printf("Saved: %s\n", file)
	}
	for _, uri := range res.URIs {
		fmt.Printf("Exported: %s\n", uri)
	}
	fmt.Println("Done")
	return nil
}
