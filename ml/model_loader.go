package ml

import (
	"errors"
	"fmt"
)

// LoadModel loads a trained classifier artifact from disk. The returned
// model is ready for inference; any failure here is a startup failure for
// the service. For random forests the artifact's feature schema must match
// the one this build predicts with.
func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case "random_forest":
		model := &RandomForest{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		if err := checkFeatureNames(model.featureNames); err != nil {
			return nil, err
		}
		return model, nil
	case "decision_tree":
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, errors.New("unsupported model type")
	}
}

func checkFeatureNames(names []string) error {
	expected := FeatureNames()
	if len(names) != len(expected) {
		return fmt.Errorf("artifact has %d features, expected %d", len(names), len(expected))
	}
	for i, name := range expected {
		if names[i] != name {
			return fmt.Errorf("artifact feature %d is %q, expected %q", i, names[i], name)
		}
	}
	return nil
}
