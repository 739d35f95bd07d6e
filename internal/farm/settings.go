package farm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/talgya/valley-farm/internal/agronomy"
)

var soilPattern = regexp.MustCompile(`^[a-z][a-z-]{1,31}$`)

// SetSoilType changes the farm's terrain/soil classification.
func (f *Farm) SetSoilType(soil string) error {
	const op = "set-soil"
	f.mu.Lock()
	defer f.unlock()

	soil = strings.ToLower(strings.TrimSpace(soil))
	if !soilPattern.MatchString(soil) {
		return f.reject(op, ErrInvalidInput, fmt.Sprintf("Invalid soil type %q.", soil))
	}
	f.soil = soil
	f.touch(EventSettings, "", "Soil type set to "+soil+".")
	return nil
}

// TogglePractice flips a sustainable practice and returns its new value.
func (f *Farm) TogglePractice(name string) (bool, error) {
	const op = "toggle-practice"
	f.mu.Lock()
	defer f.unlock()

	on, err := f.practices.Toggle(name)
	if err != nil {
		return false, f.reject(op, ErrInvalidInput, fmt.Sprintf("Unknown practice %q.", name))
	}
	f.touch(EventSettings, "", fmt.Sprintf("Practice %s set to %t.", name, on))
	return on, nil
}

// SetFertilizerType selects natural or artificial fertilizer.
func (f *Farm) SetFertilizerType(name string) error {
	const op = "set-fertilizer"
	f.mu.Lock()
	defer f.unlock()

	fert, err := agronomy.ParseFertilizer(name)
	if err != nil {
		return f.reject(op, ErrInvalidInput, fmt.Sprintf("Unknown fertilizer %q.", name))
	}
	f.fertilizer = fert
	f.touch(EventSettings, "", "Fertilizer set to "+string(fert)+".")
	return nil
}

// SetWeather sets the farm-wide weather.
func (f *Farm) SetWeather(name string) error {
	const op = "set-weather"
	f.mu.Lock()
	defer f.unlock()

	w, err := agronomy.ParseWeather(name)
	if err != nil {
		return f.reject(op, ErrInvalidInput, fmt.Sprintf("Unknown weather %q.", name))
	}
	if w == f.params.Weather {
		return nil
	}
	f.params.Weather = w
	f.touch(EventSettings, "", "Weather is now "+string(w)+".")
	return nil
}

// SetPH sets the soil pH, clamped to the supported range.
func (f *Farm) SetPH(ph float64) (float64, error) {
	const op = "set-ph"
	f.mu.Lock()
	defer f.unlock()

	if ph != ph {
		return f.params.PH, f.reject(op, ErrInvalidInput, "pH must be a number.")
	}
	f.params.PH = agronomy.ClampRange(ph, agronomy.MinPH, agronomy.MaxPH)
	f.touch(EventSettings, "", fmt.Sprintf("Soil pH set to %.1f.", f.params.PH))
	return f.params.PH, nil
}

// SelectCrop records the crop the player intends to plant next.
func (f *Farm) SelectCrop(name string) error {
	const op = "select-crop"
	f.mu.Lock()
	defer f.unlock()

	id, err := f.table.Lookup(name)
	if err != nil {
		return f.reject(op, ErrInvalidInput, lookupReason(err))
	}
	f.selected = id
	f.touch(EventSettings, "", "Selected "+string(id)+".")
	return nil
}

// DecayTick drains groundwater by the passive per-tick amount.
func (f *Farm) DecayTick() {
	f.mu.Lock()
	defer f.unlock()
	if f.params.Groundwater <= 0 {
		return
	}
	f.params.Decay(agronomy.DecayPerTick)
	f.rev++
}
