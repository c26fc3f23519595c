package ml

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldKind tells the form how to render a field.
type FieldKind string

const (
	KindInt    FieldKind = "int"
	KindFloat  FieldKind = "float"
	KindChoice FieldKind = "choice"
	KindYesNo  FieldKind = "yes_no"
)

// FieldDomain describes the acceptable values of one RawInputs field.
type FieldDomain struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
	Step    float64   `json:"step,omitempty"`
	Options []float64 `json:"options,omitempty"`
	Default any       `json:"default"`
}

// Domains lists the fields in the order the form shows them, which is not
// the feature order.
func Domains() []FieldDomain {
	return []FieldDomain{
		{Name: FeatureBatteryPower, Label: "Battery Power (mAh)", Kind: KindInt, Min: 500, Max: 2000, Step: 1, Default: 1200},
		{Name: FeatureRAMMB, Label: "RAM (MB)", Kind: KindInt, Min: 256, Max: 8192, Step: 1, Default: 2048},
		{Name: FeaturePixelWidth, Label: "Pixel Resolution Width", Kind: KindInt, Min: 500, Max: 2000, Step: 1, Default: 1280},
		{Name: FeaturePixelHeight, Label: "Pixel Resolution Height", Kind: KindInt, Min: 500, Max: 2000, Step: 1, Default: 720},
		{Name: FeatureMobileWeightG, Label: "Mobile Weight (g)", Kind: KindInt, Min: 80, Max: 250, Step: 1, Default: 140},
		{Name: FeatureInternalMemoryGB, Label: "Internal Memory (GB)", Kind: KindChoice, Options: []float64{2, 4, 8, 16, 32, 64, 128, 256, 512}, Default: 32},
		{Name: FeatureScreenHeightCM, Label: "Screen Height (cm)", Kind: KindInt, Min: 5, Max: 25, Step: 1, Default: 15},
		{Name: FeatureScreenWidthCM, Label: "Screen Width (cm)", Kind: KindInt, Min: 0, Max: 20, Step: 1, Default: 7},
		{Name: FeatureTalkTimeHours, Label: "Talk Time (hours)", Kind: KindInt, Min: 2, Max: 24, Step: 1, Default: 10},
		{Name: FeatureCoreCount, Label: "Number of Cores", Kind: KindChoice, Options: []float64{1, 2, 3, 4, 5, 6, 7, 8}, Default: 4},
		{Name: FeatureClockSpeed, Label: "Clock Speed (GHz)", Kind: KindFloat, Min: 0.5, Max: 3.5, Step: 0.1, Default: 2.0},
		{Name: FeatureMobileDepthCM, Label: "Mobile Depth (cm)", Kind: KindFloat, Min: 0.1, Max: 1.0, Step: 0.1, Default: 0.5},
		{Name: FeatureFrontCameraMP, Label: "Front Camera (MP)", Kind: KindInt, Min: 0, Max: 25, Step: 1, Default: 5},
		{Name: FeaturePrimaryCameraMP, Label: "Primary Camera (MP)", Kind: KindInt, Min: 0, Max: 64, Step: 1, Default: 16},
		{Name: FeatureFourG, Label: "Supports 4G?", Kind: KindYesNo, Default: Yes},
		{Name: FeatureThreeG, Label: "Supports 3G?", Kind: KindYesNo, Default: Yes},
		{Name: FeatureDualSim, Label: "Dual SIM?", Kind: KindYesNo, Default: Yes},
		{Name: FeatureTouchScreen, Label: "Touch Screen?", Kind: KindYesNo, Default: Yes},
		{Name: FeatureWifi, Label: "Has WiFi?", Kind: KindYesNo, Default: Yes},
		{Name: FeatureBluetooth, Label: "Has Bluetooth?", Kind: KindYesNo, Default: Yes},
	}
}

// DefaultRawInputs returns the values the form starts with.
func DefaultRawInputs() RawInputs {
	return RawInputs{
		BatteryPower:     1200,
		RAMMB:            2048,
		PixelWidth:       1280,
		PixelHeight:      720,
		MobileWeightG:    140,
		InternalMemoryGB: 32,
		ScreenHeightCM:   15,
		ScreenWidthCM:    7,
		TalkTimeHours:    10,
		CoreCount:        4,
		ClockSpeed:       2.0,
		MobileDepthCM:    0.5,
		FrontCameraMP:    5,
		PrimaryCameraMP:  16,
		FourG:            Yes,
		ThreeG:           Yes,
		DualSim:          Yes,
		TouchScreen:      Yes,
		Wifi:             Yes,
		Bluetooth:        Yes,
	}
}

var inputValidate *validator.Validate

func init() {
	inputValidate = validator.New()
	inputValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := inputValidate.RegisterValidation("step", onStep); err != nil {
		panic(err)
	}
}

// onStep accepts a float that is a whole multiple of the tag parameter,
// so step=0.1 admits 2.0 and 2.1 but not 2.05.
func onStep(fl validator.FieldLevel) bool {
	step, err := strconv.ParseFloat(fl.Param(), 64)
	if err != nil || step <= 0 {
		return false
	}
	n := fl.Field().Float() / step
	return math.Abs(n-math.Round(n)) < 1e-9
}

// ValidationError lists every field outside its domain.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid inputs: " + strings.Join(e.Fields, "; ")
}

// Validate enforces the field domains. It belongs to the acquisition side:
// Encode trusts its input.
func (r RawInputs) Validate() error {
	err := inputValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]string, 0, len(verrs))}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "min", "max":
			out.Fields = append(out.Fields, fmt.Sprintf("%s must be %s %s", fe.Field(), boundWord(fe.Tag()), fe.Param()))
		case "step":
			out.Fields = append(out.Fields, fmt.Sprintf("%s must be a multiple of %s", fe.Field(), fe.Param()))
		case "oneof":
			out.Fields = append(out.Fields, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			out.Fields = append(out.Fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return out
}

func boundWord(tag string) string {
	if tag == "min" {
		return ">="
	}
	return "<="
}

// Set parses value into the field called name, as submitted by a form.
func (r *RawInputs) Set(name, value string) error {
	value = strings.TrimSpace(value)
	atoi := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", name, value)
		}
		*dst = n
		return nil
	}
	float := func(dst *float64) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", name, value)
		}
		*dst = f
		return nil
	}
	choice := func(dst *YesNo) error {
		c, err := ParseYesNo(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = c
		return nil
	}

	switch name {
	case FeatureBatteryPower:
		return atoi(&r.BatteryPower)
	case FeatureRAMMB:
		return atoi(&r.RAMMB)
	case FeaturePixelWidth:
		return atoi(&r.PixelWidth)
	case FeaturePixelHeight:
		return atoi(&r.PixelHeight)
	case FeatureMobileWeightG:
		return atoi(&r.MobileWeightG)
	case FeatureInternalMemoryGB:
		return atoi(&r.InternalMemoryGB)
	case FeatureScreenHeightCM:
		return atoi(&r.ScreenHeightCM)
	case FeatureScreenWidthCM:
		return atoi(&r.ScreenWidthCM)
	case FeatureTalkTimeHours:
		return atoi(&r.TalkTimeHours)
	case FeatureCoreCount:
		return atoi(&r.CoreCount)
	case FeatureClockSpeed:
		return float(&r.ClockSpeed)
	case FeatureMobileDepthCM:
		return float(&r.MobileDepthCM)
	case FeatureFrontCameraMP:
		return atoi(&r.FrontCameraMP)
	case FeaturePrimaryCameraMP:
		return atoi(&r.PrimaryCameraMP)
	case FeatureFourG:
		return choice(&r.FourG)
	case FeatureThreeG:
		return choice(&r.ThreeG)
	case FeatureDualSim:
		return choice(&r.DualSim)
	case FeatureTouchScreen:
		return choice(&r.TouchScreen)
	case FeatureWifi:
		return choice(&r.Wifi)
	case FeatureBluetooth:
		return choice(&r.Bluetooth)
	default:
		return fmt.Errorf("unknown field %q", name)
	}
}
