package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FeatureSchemaVersion identifies the feature order below. A model artifact
// carries the version it was trained against and the loader refuses any
// other. Bump it together with FeatureSchema whenever the trained model's
// expected column order changes; the two must move in the same commit.
const FeatureSchemaVersion = "mobile-price/v1"

// FeatureCount is the length of every FeatureVector.
const FeatureCount = 20

// Feature names, in training column order.
const (
	FeatureBatteryPower     = "battery_power"
	FeatureBluetooth        = "bluetooth"
	FeatureClockSpeed       = "clock_speed"
	FeatureDualSim          = "dual_sim"
	FeatureFrontCameraMP    = "front_camera_mp"
	FeatureFourG            = "four_g"
	FeatureInternalMemoryGB = "internal_memory_gb"
	FeatureMobileDepthCM    = "mobile_depth_cm"
	FeatureMobileWeightG    = "mobile_weight_g"
	FeatureCoreCount        = "core_count"
	FeaturePrimaryCameraMP  = "primary_camera_mp"
	FeaturePixelHeight      = "pixel_height"
	FeaturePixelWidth       = "pixel_width"
	FeatureRAMMB            = "ram_mb"
	FeatureScreenHeightCM   = "screen_height_cm"
	FeatureScreenWidthCM    = "screen_width_cm"
	FeatureTalkTimeHours    = "talk_time_hours"
	FeatureThreeG           = "three_g"
	FeatureTouchScreen      = "touch_screen"
	FeatureWifi             = "wifi"
)

// FeatureSchema is the positional contract between Encode and the trained
// model. Position i of a FeatureVector holds the attribute FeatureSchema[i].
// Reordering this list silently changes the meaning of every prediction.
var FeatureSchema = [FeatureCount]string{
	FeatureBatteryPower,
	FeatureBluetooth,
	FeatureClockSpeed,
	FeatureDualSim,
	FeatureFrontCameraMP,
	FeatureFourG,
	FeatureInternalMemoryGB,
	FeatureMobileDepthCM,
	FeatureMobileWeightG,
	FeatureCoreCount,
	FeaturePrimaryCameraMP,
	FeaturePixelHeight,
	FeaturePixelWidth,
	FeatureRAMMB,
	FeatureScreenHeightCM,
	FeatureScreenWidthCM,
	FeatureTalkTimeHours,
	FeatureThreeG,
	FeatureTouchScreen,
	FeatureWifi,
}

var ErrInvalidChoice = errors.New("choice must be Yes or No")

// YesNo is a binary toggle as presented to the user.
type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)

// ParseYesNo accepts "Yes" or "No", ignoring case and surrounding space.
func ParseYesNo(s string) (YesNo, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return Yes, nil
	case "no":
		return No, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
}

func (c *YesNo) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidChoice, data)
	}
	parsed, err := ParseYesNo(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Bit is 1 for Yes and 0 for anything else.
func (c YesNo) Bit() float64 {
	if c == Yes {
		return 1
	}
	return 0
}

// RawInputs are the 20 attributes collected from the user before encoding.
// Bounds are enforced by Validate, never by Encode.
type RawInputs struct {
	BatteryPower     int     `json:"battery_power" validate:"min=500,max=2000"`
	RAMMB            int     `json:"ram_mb" validate:"min=256,max=8192"`
	PixelWidth       int     `json:"pixel_width" validate:"min=500,max=2000"`
	PixelHeight      int     `json:"pixel_height" validate:"min=500,max=2000"`
	MobileWeightG    int     `json:"mobile_weight_g" validate:"min=80,max=250"`
	InternalMemoryGB int     `json:"internal_memory_gb" validate:"oneof=2 4 8 16 32 64 128 256 512"`
	ScreenHeightCM   int     `json:"screen_height_cm" validate:"min=5,max=25"`
	ScreenWidthCM    int     `json:"screen_width_cm" validate:"min=0,max=20"`
	TalkTimeHours    int     `json:"talk_time_hours" validate:"min=2,max=24"`
	CoreCount        int     `json:"core_count" validate:"oneof=1 2 3 4 5 6 7 8"`
	ClockSpeed       float64 `json:"clock_speed" validate:"min=0.5,max=3.5,step=0.1"`
	MobileDepthCM    float64 `json:"mobile_depth_cm" validate:"min=0.1,max=1,step=0.1"`
	FrontCameraMP    int     `json:"front_camera_mp" validate:"min=0,max=25"`
	PrimaryCameraMP  int     `json:"primary_camera_mp" validate:"min=0,max=64"`

	FourG       YesNo `json:"four_g" validate:"oneof=Yes No"`
	ThreeG      YesNo `json:"three_g" validate:"oneof=Yes No"`
	DualSim     YesNo `json:"dual_sim" validate:"oneof=Yes No"`
	TouchScreen YesNo `json:"touch_screen" validate:"oneof=Yes No"`
	Wifi        YesNo `json:"wifi" validate:"oneof=Yes No"`
	Bluetooth   YesNo `json:"bluetooth" validate:"oneof=Yes No"`
}

// FeatureVector is an encoded RawInputs, ordered by FeatureSchema.
type FeatureVector [FeatureCount]float64

// Slice returns the vector as a single model input row.
func (v FeatureVector) Slice() []float64 {
	row := make([]float64, FeatureCount)
	copy(row, v[:])
	return row
}

// Encode builds the model input for raw. The position of each value is the
// index of its name in FeatureSchema; TestEncodeMatchesSchema pins the pairing.
func Encode(raw RawInputs) FeatureVector {
	return FeatureVector{
		float64(raw.BatteryPower),
		raw.Bluetooth.Bit(),
		raw.ClockSpeed,
		raw.DualSim.Bit(),
		float64(raw.FrontCameraMP),
		raw.FourG.Bit(),
		float64(raw.InternalMemoryGB),
		raw.MobileDepthCM,
		float64(raw.MobileWeightG),
		float64(raw.CoreCount),
		float64(raw.PrimaryCameraMP),
		float64(raw.PixelHeight),
		float64(raw.PixelWidth),
		float64(raw.RAMMB),
		float64(raw.ScreenHeightCM),
		float64(raw.ScreenWidthCM),
		float64(raw.TalkTimeHours),
		raw.ThreeG.Bit(),
		raw.TouchScreen.Bit(),
		raw.Wifi.Bit(),
	}
}

// Named returns the vector keyed by feature name.
func (v FeatureVector) Named() map[string]float64 {
	named := make(map[string]float64, FeatureCount)
	for i, name := range FeatureSchema {
		named[name] = v[i]
	}
	return named
}
