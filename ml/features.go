package ml

import (
	"encoding/json"
	"fmt"
	"io"
)

// MatchInput is one prediction request: the two team strength scores and
// the weather flag. The field order here is the feature order the model
// was trained with.
type MatchInput struct {
	Team1Strength    float64 `json:"team1_strength"`
	Team2Strength    float64 `json:"team2_strength"`
	WeatherCondition int     `json:"weather_condition"`
}

// ValidationError reports a malformed or incomplete MatchInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// DecodeMatchInput parses a JSON request body into a MatchInput. All three
// fields must be present and of the declared type; any failure is returned
// as a *ValidationError before the input reaches the model or the store.
func DecodeMatchInput(r io.Reader) (MatchInput, error) {
	var raw struct {
		Team1Strength    *float64 `json:"team1_strength"`
		Team2Strength    *float64 `json:"team2_strength"`
		WeatherCondition *int     `json:"weather_condition"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
			return MatchInput{}, &ValidationError{Field: typeErr.Field, Reason: "expected " + typeErr.Type.String()}
		}
		return MatchInput{}, &ValidationError{Reason: "invalid request body"}
	}
	if raw.Team1Strength == nil {
		return MatchInput{}, &ValidationError{Field: "team1_strength", Reason: "field is required"}
	}
	if raw.Team2Strength == nil {
		return MatchInput{}, &ValidationError{Field: "team2_strength", Reason: "field is required"}
	}
	if raw.WeatherCondition == nil {
		return MatchInput{}, &ValidationError{Field: "weather_condition", Reason: "field is required"}
	}
	return MatchInput{
		Team1Strength:    *raw.Team1Strength,
		Team2Strength:    *raw.Team2Strength,
		WeatherCondition: *raw.WeatherCondition,
	}, nil
}

// FeatureVector converts a MatchInput to the fixed-order vector fed to the
// classifier: team1_strength, team2_strength, weather_condition.
func FeatureVector(input MatchInput) []float64 {
	return []float64{
		input.Team1Strength,
		input.Team2Strength,
		float64(input.WeatherCondition),
	}
}

// FeatureNames returns the feature order the classifier artifact must agree
// with. Loading rejects an artifact trained with a different schema.
func FeatureNames() []string {
	return []string{
		"team1_strength",
		"team2_strength",
		"weather_condition",
	}
}

// Human labels for the classifier's binary output.
const (
	WinnerTeam1 = "Team 1"
	WinnerTeam2 = "Team 2"
)

// WinnerLabel maps the raw class label to the response string: 1 means
// Team 1 wins, anything else Team 2.
func WinnerLabel(label int) string {
	if label == 1 {
		return WinnerTeam1
	}
	return WinnerTeam2
}
