package http

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"mobileprice/ml"
	"mobileprice/monitoring"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type formField struct {
	ml.FieldDomain
	Value string
}

type formSummary struct {
	Label string
	Value string
}

type formPage struct {
	Fields  []formField
	Result  string
	Error   string
	Summary []formSummary
}

var printer = message.NewPrinter(language.English)

var formTemplate = template.Must(template.New("form").Funcs(template.FuncMap{
	"num": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Mobile Price Predictor</title>
<style>
body { font-family: sans-serif; max-width: 52rem; margin: 2rem auto; }
form { display: grid; grid-template-columns: 1fr 1fr; gap: .6rem 2rem; }
label { display: block; font-size: .9rem; }
.result { padding: 1rem; background: #e6f4ea; border-left: 4px solid #34a853; margin: 1rem 0; }
.error { padding: 1rem; background: #fce8e6; border-left: 4px solid #d93025; margin: 1rem 0; }
button { grid-column: 1 / -1; padding: .6rem; font-weight: bold; }
</style>
</head>
<body>
<h1>Mobile Price Range Predictor</h1>
<p>Enter the specifications of a mobile phone and the model will predict its price range.</p>
{{if .Result}}<div class="result"><strong>Predicted Price Range: {{.Result}}</strong>
<ul>{{range .Summary}}<li>{{.Label}}: {{.Value}}</li>{{end}}</ul></div>{{end}}
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
<form method="post" action="/">
{{range .Fields}}<div>
<label for="{{.Name}}">{{.Label}}</label>
{{if eq .Kind "yes_no"}}<select id="{{.Name}}" name="{{.Name}}">
<option{{if eq .Value "Yes"}} selected{{end}}>Yes</option>
<option{{if eq .Value "No"}} selected{{end}}>No</option>
</select>
{{else if eq .Kind "choice"}}{{$v := .Value}}<select id="{{.Name}}" name="{{.Name}}">
{{range .Options}}<option{{if eq (num .) $v}} selected{{end}}>{{num .}}</option>{{end}}
</select>
{{else}}<input type="range" id="{{.Name}}" name="{{.Name}}" min="{{num .Min}}" max="{{num .Max}}" step="{{num .Step}}" value="{{.Value}}" oninput="this.nextElementSibling.value=this.value">
<output>{{.Value}}</output>
{{end}}</div>
{{end}}<button type="submit">Predict Price Range</button>
</form>
</body>
</html>
`))

func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, http.StatusOK, newFormPage(ml.DefaultRawInputs()))
}

func (h *Handlers) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	raw, err := parseForm(r)
	if err != nil {
		monitoring.RecordPredictionError("validation")
		page := newFormPage(raw)
		page.Error = err.Error()
		h.renderForm(w, http.StatusBadRequest, page)
		return
	}

	page := newFormPage(raw)
	p, err := h.predict(raw)
	if err != nil {
		var verr *ml.ValidationError
		status := http.StatusInternalServerError
		page.Error = "Prediction failed. Please try again."
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
			page.Error = err.Error()
		}
		h.renderForm(w, status, page)
		return
	}
	page.Result = p.Label
	page.Summary = summarize(raw)
	h.renderForm(w, http.StatusOK, page)
}

// parseForm starts from the defaults so absent fields keep them. The
// returned inputs are usable for re-rendering even when err is set.
func parseForm(r *http.Request) (ml.RawInputs, error) {
	raw := ml.DefaultRawInputs()
	if err := r.ParseForm(); err != nil {
		return raw, err
	}
	for _, d := range ml.Domains() {
		value := r.PostForm.Get(d.Name)
		if value == "" {
			continue
		}
		if err := raw.Set(d.Name, value); err != nil {
			return raw, err
		}
	}
	return raw, nil
}

func newFormPage(raw ml.RawInputs) formPage {
	named := ml.Encode(raw).Named()
	choices := map[string]ml.YesNo{
		ml.FeatureFourG:       raw.FourG,
		ml.FeatureThreeG:      raw.ThreeG,
		ml.FeatureDualSim:     raw.DualSim,
		ml.FeatureTouchScreen: raw.TouchScreen,
		ml.FeatureWifi:        raw.Wifi,
		ml.FeatureBluetooth:   raw.Bluetooth,
	}
	domains := ml.Domains()
	page := formPage{Fields: make([]formField, 0, len(domains))}
	for _, d := range domains {
		value := strconv.FormatFloat(named[d.Name], 'f', -1, 64)
		if d.Kind == ml.KindYesNo {
			value = string(choices[d.Name])
		}
		page.Fields = append(page.Fields, formField{FieldDomain: d, Value: value})
	}
	return page
}

// summarize echoes the headline specs with locale grouping, e.g. "8,192 MB".
func summarize(raw ml.RawInputs) []formSummary {
	return []formSummary{
		{"RAM", printer.Sprintf("%d MB", raw.RAMMB)},
		{"Battery", printer.Sprintf("%d mAh", raw.BatteryPower)},
		{"Resolution", printer.Sprintf("%d × %d px", raw.PixelWidth, raw.PixelHeight)},
		{"Storage", printer.Sprintf("%d GB", raw.InternalMemoryGB)},
		{"CPU", printer.Sprintf("%d cores @ %.1f GHz", raw.CoreCount, raw.ClockSpeed)},
	}
}

func (h *Handlers) renderForm(w http.ResponseWriter, status int, page formPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, page); err != nil {
		h.logger.Error("render form failed", zap.Error(err))
	}
}
