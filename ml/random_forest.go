package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
)

// forestFormatVersion is bumped whenever the artifact layout changes.
// Loading an artifact with a different version is a startup failure.
const forestFormatVersion = 1

// ForestParams holds the hyperparameters of a random forest. Seed makes
// training reproducible; the offline trainer fixes it.
type ForestParams struct {
	NumTrees int        `json:"num_trees"`
	Tree     TreeParams `json:"tree"`
	Seed     int64      `json:"seed"`
}

func (p ForestParams) withDefaults(featureCount int) ForestParams {
	if p.NumTrees <= 0 {
		p.NumTrees = 100
	}
	if p.Tree.MaxFeatures <= 0 {
		subset := int(math.Sqrt(float64(featureCount)))
		if subset < 1 {
			subset = 1
		}
		p.Tree.MaxFeatures = subset
	}
	p.Tree = p.Tree.withDefaults()
	return p
}

// RandomForest is a bagged ensemble of decision trees. Each tree is grown
// on a bootstrap sample and considers a random feature subset at every
// split; prediction is a majority vote with the vote share as confidence.
type RandomForest struct {
	params       ForestParams
	featureNames []string
	trees        []*DecisionTree
}

type forestArtifact struct {
	FormatVersion int          `json:"format_version"`
	ModelType     string       `json:"model_type"`
	FeatureNames  []string     `json:"feature_names"`
	Params        ForestParams `json:"params"`
	Trees         [][]TreeNode `json:"trees"`
}

// NewRandomForest creates an untrained forest for the given feature schema.
func NewRandomForest(params ForestParams, featureNames []string) *RandomForest {
	return &RandomForest{
		params:       params,
		featureNames: append([]string(nil), featureNames...),
	}
}

// FeatureNames returns the feature order this forest was built for.
func (rf *RandomForest) FeatureNames() []string {
	return append([]string(nil), rf.featureNames...)
}

func (rf *RandomForest) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}

	params := rf.params.withDefaults(len(features[0]))
	rng := rand.New(rand.NewSource(params.Seed))

	trees := make([]*DecisionTree, 0, params.NumTrees)
	for i := 0; i < params.NumTrees; i++ {
		sampleX, sampleY := bootstrapSample(features, labels, rng)
		tree := newTreeWithRand(params.Tree, rand.New(rand.NewSource(rng.Int63())))
		if err := tree.Train(sampleX, sampleY); err != nil {
			return fmt.Errorf("train tree %d: %w", i, err)
		}
		trees = append(trees, tree)
	}

	rf.params = params
	rf.trees = trees
	return nil
}

func (rf *RandomForest) Predict(features []float64) (int, float64, error) {
	if len(rf.trees) == 0 {
		return 0, 0, errors.New("model not trained")
	}

	votes := make(map[int]int)
	for _, tree := range rf.trees {
		label, _, err := tree.Predict(features)
		if err != nil {
			return 0, 0, err
		}
		votes[label]++
	}

	bestLabel := 0
	bestVotes := -1
	for label, count := range votes {
		if count > bestVotes || (count == bestVotes && label < bestLabel) {
			bestVotes = count
			bestLabel = label
		}
	}
	return bestLabel, float64(bestVotes) / float64(len(rf.trees)), nil
}

func (rf *RandomForest) Save(path string) error {
	if len(rf.trees) == 0 {
		return errors.New("model not trained")
	}

	artifact := forestArtifact{
		FormatVersion: forestFormatVersion,
		ModelType:     "random_forest",
		FeatureNames:  rf.featureNames,
		Params:        rf.params,
		Trees:         make([][]TreeNode, len(rf.trees)),
	}
	for i, tree := range rf.trees {
		artifact.Trees[i] = tree.nodes
	}

	payload, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var artifact forestArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return fmt.Errorf("malformed model artifact: %w", err)
	}
	if artifact.FormatVersion != forestFormatVersion {
		return fmt.Errorf("unsupported artifact format version %d", artifact.FormatVersion)
	}
	if len(artifact.Trees) == 0 {
		return errors.New("artifact contains no trees")
	}

	trees := make([]*DecisionTree, len(artifact.Trees))
	for i, nodes := range artifact.Trees {
		trees[i] = &DecisionTree{params: artifact.Params.Tree, nodes: nodes}
	}

	rf.params = artifact.Params
	rf.featureNames = artifact.FeatureNames
	rf.trees = trees
	return nil
}

func bootstrapSample(features [][]float64, labels []int, rng *rand.Rand) ([][]float64, []int) {
	n := len(features)
	sampleX := make([][]float64, n)
	sampleY := make([]int, n)
	for i := 0; i < n; i++ {
		idx := rng.Intn(n)
		sampleX[i] = features[idx]
		sampleY[i] = labels[idx]
	}
	return sampleX, sampleY
}
