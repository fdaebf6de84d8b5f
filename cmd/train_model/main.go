// Command train_model fits the match outcome classifier offline. It runs
// a grid search with k-fold cross-validation over the random forest
// hyperparameters, refits the best candidate, reports holdout accuracy and
// writes the artifact the service loads at boot.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"matchcast/ml"
)

func main() {
	modelPath := flag.String("model_path", "./models/match_forest.model", "model output path")
	testRatio := flag.Float64("test_ratio", 0.2, "holdout ratio")
	folds := flag.Int("folds", 5, "cross-validation folds")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	features, labels := ml.TrainingSet()
	trainX, trainY, testX, testY := splitDataset(features, labels, *testRatio, *seed)

	best := gridSearch(trainX, trainY, *folds, *seed)
	log.Printf("best params: trees=%d max_depth=%d min_split=%d min_leaf=%d cv_accuracy=%.3f",
		best.params.NumTrees, best.params.Tree.MaxDepth,
		best.params.Tree.MinSamplesSplit, best.params.Tree.MinSamplesLeaf, best.score)

	model := ml.NewRandomForest(best.params, ml.FeatureNames())
	if err := model.Train(trainX, trainY); err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	accuracy := evaluate(model, testX, testY)
	log.Printf("holdout accuracy=%.3f (%d samples)", accuracy, len(testY))

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	if err := model.Save(*modelPath); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	fmt.Printf("model saved to %s\n", *modelPath)
}

type gridResult struct {
	params ml.ForestParams
	score  float64
}

// gridSearch scores every hyperparameter combination by cross-validated
// accuracy and returns the best one. The grid mirrors the search the model
// was originally tuned with.
func gridSearch(features [][]float64, labels []int, folds int, seed int64) gridResult {
	numTrees := []int{50, 100, 200}
	maxDepths := []int{0, 10, 20}
	minSplits := []int{2, 5, 10}
	minLeafs := []int{1, 2, 4}

	best := gridResult{score: -1}
	for _, trees := range numTrees {
		for _, depth := range maxDepths {
			for _, split := range minSplits {
				for _, leaf := range minLeafs {
					params := ml.ForestParams{
						NumTrees: trees,
						Seed:     seed,
						Tree: ml.TreeParams{
							MaxDepth:        depth,
							MinSamplesSplit: split,
							MinSamplesLeaf:  leaf,
						},
					}
					score := crossValidate(features, labels, params, folds, seed)
					if score > best.score {
						best = gridResult{params: params, score: score}
					}
				}
			}
		}
	}
	return best
}

// crossValidate returns the mean accuracy over k folds.
func crossValidate(features [][]float64, labels []int, params ml.ForestParams, folds int, seed int64) float64 {
	n := len(features)
	if folds < 2 {
		folds = 2
	}
	if folds > n {
		folds = n
	}

	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(n)

	var correct, total int
	for fold := 0; fold < folds; fold++ {
		var trainX [][]float64
		var trainY []int
		var testX [][]float64
		var testY []int
		for i, idx := range order {
			if i%folds == fold {
				testX = append(testX, features[idx])
				testY = append(testY, labels[idx])
			} else {
				trainX = append(trainX, features[idx])
				trainY = append(trainY, labels[idx])
			}
		}
		if len(trainX) == 0 || len(testX) == 0 {
			continue
		}

		model := ml.NewRandomForest(params, ml.FeatureNames())
		if err := model.Train(trainX, trainY); err != nil {
			continue
		}
		for i, x := range testX {
			label, _, err := model.Predict(x)
			if err != nil {
				continue
			}
			total++
			if label == testY[i] {
				correct++
			}
		}
	}

	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

func splitDataset(features [][]float64, labels []int, testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rng := rand.New(rand.NewSource(seed))
	indices := rng.Perm(len(features))

	split := int(math.Round(float64(len(features)) * (1 - testRatio)))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}

func evaluate(model ml.Classifier, testX [][]float64, testY []int) float64 {
	if len(testX) == 0 {
		return 0
	}
	var correct int
	for i, x := range testX {
		label, _, err := model.Predict(x)
		if err != nil {
			continue
		}
		if label == testY[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(testX))
}
