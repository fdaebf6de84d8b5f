package ml

// Classifier maps a feature vector to a class label with a confidence
// score. Implementations must be safe for concurrent use after training;
// the service shares one loaded classifier across all handlers.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
}

// TrainableModel is a Classifier that can also be fitted and persisted.
// Only the offline trainer uses the full interface; the serving path sees
// Classifier.
type TrainableModel interface {
	Classifier
	Train(features [][]float64, labels []int) error
	Save(path string) error
	Load(path string) error
}
