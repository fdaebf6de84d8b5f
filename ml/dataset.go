package ml

// The training corpus: 20 historical matches with the two team strength
// scores, the weather flag and the observed winner (1 = Team 1, 0 = Team 2).
var trainingMatches = []struct {
	team1   float64
	team2   float64
	weather int
	winner  int
}{
	{8, 5, 1, 1},
	{7, 6, 0, 0},
	{6, 7, 1, 0},
	{5, 8, 0, 1},
	{9, 4, 1, 1},
	{4, 5, 1, 0},
	{6, 7, 0, 1},
	{5, 6, 1, 1},
	{7, 6, 0, 0},
	{8, 5, 1, 1},
	{7, 6, 1, 1},
	{6, 7, 1, 0},
	{5, 8, 0, 1},
	{9, 4, 0, 0},
	{8, 5, 1, 1},
	{7, 6, 1, 1},
	{6, 7, 0, 0},
	{4, 9, 0, 1},
	{7, 8, 1, 0},
	{8, 6, 0, 1},
}

// TrainingSet returns the feature matrix and labels for the match corpus,
// with columns in FeatureNames() order.
func TrainingSet() ([][]float64, []int) {
	features := make([][]float64, len(trainingMatches))
	labels := make([]int, len(trainingMatches))
	for i, m := range trainingMatches {
		features[i] = []float64{m.team1, m.team2, float64(m.weather)}
		labels[i] = m.winner
	}
	return features, labels
}
