package common

// Scene tags
const (
	TagSourceID             = "sourceID"
	TagCollection           = "collection"
	TagAcquisitionDate      = "acquisitionDate"
	TagPlatform             = "platform"
	TagMission              = "mission"
	TagProductLevel         = "productLevel"
	TagRelativeOrbit        = "relativeOrbit"
	TagTile                 = "tile"
	TagCloudCoverPercentage = "cloudCoverPercentage"
	TagProcessingDate       = "processingDate"
)
