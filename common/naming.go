package common

import (
	"fmt"
	"strings"
	"time"
)

// DefaultOutputPattern is the output prefix used when none is provided
const DefaultOutputPattern = "sentinel2_{YEAR}-{MONTH}-{DAY}"

// BandFileName returns the name of the raster file of the band
func BandFileName(prefix string, band Band) string {
	return fmt.Sprintf("%s_%s.tif", prefix, band)
}

// ResultFileName returns the name of the rendered heatmap of the index
func ResultFileName(prefix, index string) string {
	return fmt.Sprintf("%s_%s_result.png", prefix, index)
}

// PreviewFileName returns the name of the rendered preview
func PreviewFileName(prefix string) string {
	return prefix + "_preview.jpg"
}

// IsSentinel2 returns true if the scene name is a Sentinel-2 product identifier
func IsSentinel2(sceneName string) bool {
	return strings.HasPrefix(sceneName, "S2")
}

// Info extracts the fields of a Sentinel-2 product identifier
// Supported formats:
//
//	MMM_MSIXXX_YYYYMMDDTHHMMSS_Nxxyy_ROOO_Txxxxx_<Product Discriminator>(.SAFE)
//	MMM_MSIXXX_YYYYMMDDTHHMMSS_ROOO_Txxxxx_<Processing date> (STAC item ID)
func Info(sceneName string) (map[string]string, error) {
	if !IsSentinel2(sceneName) {
		return nil, fmt.Errorf("Info: constellation not supported: %s", sceneName)
	}
	if len(sceneName) < len("MMM_MSIXXX_YYYYMMDDTHHMMSS_ROOO_Txxxxx") || sceneName[10] != '_' || sceneName[26] != '_' {
		return nil, fmt.Errorf("invalid Sentinel2 file name: %s", sceneName)
	}
	info := map[string]string{
		"SCENE":           sceneName,
		"MISSION_ID":      sceneName[0:3],
		"MISSION_VERSION": sceneName[2:3],
		"PRODUCT_LEVEL":   sceneName[7:10],
		"DATE":            sceneName[11:19],
		"YEAR":            sceneName[11:15],
		"MONTH":           sceneName[15:17],
		"DAY":             sceneName[17:19],
		"TIME":            sceneName[20:26],
		"HOUR":            sceneName[20:22],
		"MINUTE":          sceneName[22:24],
		"SECOND":          sceneName[24:26],
	}
	rest := sceneName[27:]
	if strings.HasPrefix(rest, "N") {
		// Baseline of the processing
		if len(rest) < len("Nxxyy_ROOO_Txxxxx") {
			return nil, fmt.Errorf("invalid Sentinel2 file name: %s", sceneName)
		}
		info["PDGS"] = rest[1:5]
		rest = rest[6:]
	}
	if len(rest) < len("ROOO_Txxxxx") || rest[0] != 'R' || rest[4] != '_' || rest[5] != 'T' {
		return nil, fmt.Errorf("invalid Sentinel2 file name: %s", sceneName)
	}
	info["ORBIT"] = rest[1:4]
	info["TILE"] = rest[5:11]
	info["LATITUDE_BAND"] = rest[6:8]
	info["GRID_SQUARE"] = rest[8:9]
	info["GRANULE_ID"] = rest[9:11]
	if len(rest) >= len("ROOO_Txxxxx_YYYYMMDDTHHMMSS") {
		info["PRODUCT_DISC"] = strings.TrimSuffix(rest[12:], ".SAFE")
	}
	return info, nil
}

/**
 * FormatBrackets replaces in <str> all {keys} of <info> by the corresponding value
 * keys must be one of SCENE, MISSION_ID, PRODUCT_LEVEL, DATE(YEAR/MONTH/DAY), TIME(HOUR/MINUTE/SECOND), PDGS, ORBIT, TILE (LATITUDE_BAND/GRID_SQUARE/GRANULE_ID)
 */
func FormatBrackets(str string, infos ...map[string]string) string {
	for _, info := range infos {
		for k, v := range info {
			str = strings.ReplaceAll(str, "{"+k+"}", v)
		}
	}
	return str
}

// DateInfo returns the date fields usable by FormatBrackets
func DateInfo(date time.Time) map[string]string {
	return map[string]string{
		"DATE":   date.Format("20060102"),
		"YEAR":   date.Format("2006"),
		"MONTH":  date.Format("01"),
		"DAY":    date.Format("02"),
		"TIME":   date.Format("150405"),
		"HOUR":   date.Format("15"),
		"MINUTE": date.Format("04"),
		"SECOND": date.Format("05"),
	}
}

// OutputPrefix computes the output prefix of the scene from a pattern that may contain {IDENTIFIER}
func OutputPrefix(pattern string, scene Scene) string {
	if pattern == "" {
		pattern = DefaultOutputPattern
	}
	infos := []map[string]string{DateInfo(scene.Date.UTC())}
	if info, err := Info(scene.SourceID); err == nil {
		info["SCENE"] = scene.SourceID
		// The acquisition date of the catalog takes precedence
		for k := range infos[0] {
			delete(info, k)
		}
		infos = append(infos, info)
	}
	return FormatBrackets(pattern, infos...)
}
