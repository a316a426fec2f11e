package loadgen

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/okian/geocluster/internal/domain/record"
	"github.com/okian/geocluster/pkg/logger"
)

// Generate builds cfg.Datasets datasets of well separated Gaussian blobs. Each
// blob carries its own beat code, so the server derives k from the group column.
func Generate(ctx context.Context, cfg *Config, stats *Stats) ([]Dataset, error) {
	if cfg.Blobs <= 0 || cfg.PointsPerBlob <= 0 {
		return nil, fmt.Errorf("blobs and points per blob must be positive")
	}
	logger.Get().Info(ctx, "generating datasets",
		logger.Int("datasets", cfg.Datasets),
		logger.Int("blobs", cfg.Blobs),
		logger.Int("pointsPerBlob", cfg.PointsPerBlob))

	datasets := make([]Dataset, cfg.Datasets)
	for d := range datasets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		datasets[d] = generateDataset(rand.New(rand.NewSource(cfg.Seed+int64(d))), cfg)
	}

	if stats != nil {
		stats.DatasetsGenerated = len(datasets)
	}
	return datasets, nil
}

func generateDataset(rng *rand.Rand, cfg *Config) Dataset {
	spread := cfg.Spread
	if spread <= 0 {
		spread = DefaultSpread
	}

	n := cfg.Blobs * cfg.PointsPerBlob
	ds := Dataset{
		ID:    uuid.NewString(),
		Truth: make([]int, 0, n),
	}
	for b := 0; b < cfg.Blobs; b++ {
		lat, lng := blobCenter(rng, b)
		beat := fmt.Sprintf("B%03d", b)
		for i := 0; i < cfg.PointsPerBlob; i++ {
			ds.Records = append(ds.Records, newRecord(
				lat+rng.NormFloat64()*spread,
				lng+rng.NormFloat64()*spread,
				beat,
				fmt.Sprintf("%s-%d", beat, i),
			))
			ds.Truth = append(ds.Truth, b)
		}
	}

	// Shuffle so blobs are interleaved in the batch.
	rng.Shuffle(n, func(i, j int) {
		ds.Records[i], ds.Records[j] = ds.Records[j], ds.Records[i]
		ds.Truth[i], ds.Truth[j] = ds.Truth[j], ds.Truth[i]
	})
	return ds
}

// blobCenter places blob b on a coarse grid with a little jitter.
func blobCenter(rng *rand.Rand, b int) (lat, lng float64) {
	row, col := b/gridColumns, b%gridColumns
	lat = latOrigin + float64(row%7)*latStep + (rng.Float64()-0.5)*centerJitter
	lng = lngOrigin + float64(col)*lngStep + float64(row/7)*(lngStep/3) + (rng.Float64()-0.5)*centerJitter
	return lat, lng
}

func newRecord(lat, lng float64, beat, id string) record.Record {
	return record.Of(
		"incident", id,
		"latitude", lat,
		"longitude", lng,
		"beatcode", beat,
	)
}
