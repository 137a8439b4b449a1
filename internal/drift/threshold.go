package drift

import (
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/course-compass/backend/pkg/logger"
)

var ErrEmptyTrainingSet = errors.New("cannot derive similarity band from empty training set")

// SimilarityBand is the per-run drift classification interval. Lower is
// always strictly below Upper.
type SimilarityBand struct {
	Upper float64
	Lower float64
}

// Contains reports whether a similarity lies strictly inside the band.
// Values on either boundary are not drift.
func (b SimilarityBand) Contains(similarity float64) bool {
	return similarity > b.Lower && similarity < b.Upper
}

// ComputeBand derives the band from the training embeddings. The scan runs
// pairwise cosine similarity inside each fixed-size batch only, tracking
// the running minimum across batches. Cross-batch pairs are never compared;
// this understates the true global minimum but is kept for parity with the
// historical runs that produced the drift log.
func ComputeBand(train [][]float32, batchSize int) (SimilarityBand, error) {
	if len(train) == 0 {
		return SimilarityBand{}, ErrEmptyTrainingSet
	}
	if batchSize <= 0 {
		batchSize = 4
	}

	minimumSim := math.Inf(1)
	for i := 0; i < len(train); i += batchSize {
		end := i + batchSize
		if end > len(train) {
			end = len(train)
		}
		batch := train[i:end]

		for j := range batch {
			for k := range batch {
				if sim := cosineSimilarity(batch[j], batch[k]); sim < minimumSim {
					minimumSim = sim
				}
			}
		}
	}

	band := SimilarityBand{
		Upper: minimumSim - minimumSim*0.1,
		Lower: minimumSim - minimumSim*0.6,
	}

	logger.Info("Similarity band derived",
		zap.Float64("minimum_sim", minimumSim),
		zap.Float64("upper_threshold", band.Upper),
		zap.Float64("lower_threshold", band.Lower),
	)
	return band, nil
}
