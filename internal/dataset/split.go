package dataset

import (
	"math"
	"math/rand"
)

// TrainTestSplit partitions n row indices into a shuffled train and test
// set. The test set holds ceil(testSize*n) rows. The same seed always
// yields the same partition, which lets evaluation reproduce the holdout
// used during training.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int) {
	if n == 0 {
		return nil, nil
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 0 {
		nTest = 0
	}
	if nTest > n {
		nTest = n
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = perm[:nTest]
	train = perm[nTest:]
	return train, test
}
