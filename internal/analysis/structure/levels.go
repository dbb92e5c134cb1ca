package structure

import (
	"math"
	"sort"

	"smc-trader/internal/models"
)

// LevelClusterer groups nearby swing prices into key levels.
//
// The clustering is a greedy single pass over sorted prices: a price joins
// the current cluster when its relative distance to the cluster's anchor
// (the first price that opened the cluster) is within tolerance. The anchor
// is never re-centered, so cluster boundaries depend on iteration order.
// Deterministic but not globally optimal; downstream strength math assumes
// exactly this behavior.
type LevelClusterer struct {
	tolerance       float64 // relative distance for cluster membership
	breakerDistance float64 // relative distance for breaker detection
}

// NewLevelClusterer creates a clusterer with the standard 0.2% tolerance.
func NewLevelClusterer() *LevelClusterer {
	return &LevelClusterer{
		tolerance:       0.002,
		breakerDistance: 0.003,
	}
}

func (l *LevelClusterer) Name() string {
	return "LevelClusterer"
}

// PriceCluster is a group of nearby prices emitted by Cluster.
type PriceCluster struct {
	Price float64 // mean of member prices
	Count int
}

// Cluster groups prices into clusters, sorted by descending member count.
func (l *LevelClusterer) Cluster(prices []float64) []PriceCluster {
	if len(prices) == 0 {
		return nil
	}

	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	var clusters []PriceCluster
	anchor := sorted[0]
	sum := sorted[0]
	count := 1

	for _, p := range sorted[1:] {
		if math.Abs(p-anchor)/anchor <= l.tolerance {
			sum += p
			count++
			continue
		}
		clusters = append(clusters, PriceCluster{Price: sum / float64(count), Count: count})
		anchor = p
		sum = p
		count = 1
	}
	clusters = append(clusters, PriceCluster{Price: sum / float64(count), Count: count})

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})
	return clusters
}

// KeyLevels clusters swing lows into supports and swing highs into
// resistances. Strength is the cluster's member count normalized against
// the largest cluster on either side. A level whose price also appears in
// the opposite-side cluster set was broken at some point and is emitted as
// a breaker with a strength offset.
func (l *LevelClusterer) KeyLevels(swings []models.Swing, tf models.Timeframe) []models.KeyLevel {
	var highPrices, lowPrices []float64
	for _, s := range swings {
		if s.Type.IsHigh() {
			highPrices = append(highPrices, s.Price)
		} else {
			lowPrices = append(lowPrices, s.Price)
		}
	}

	highClusters := l.Cluster(highPrices)
	lowClusters := l.Cluster(lowPrices)

	maxCount := 0
	for _, c := range highClusters {
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}
	for _, c := range lowClusters {
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}
	if maxCount == 0 {
		return nil
	}

	var levels []models.KeyLevel
	for _, c := range lowClusters {
		levels = append(levels, l.makeLevel(c, models.LevelSupport, highClusters, maxCount, tf))
	}
	for _, c := range highClusters {
		levels = append(levels, l.makeLevel(c, models.LevelResistance, lowClusters, maxCount, tf))
	}

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Strength > levels[j].Strength
	})
	return levels
}

const breakerStrengthOffset = 0.15

func (l *LevelClusterer) makeLevel(c PriceCluster, levelType models.LevelType, opposite []PriceCluster, maxCount int, tf models.Timeframe) models.KeyLevel {
	strength := float64(c.Count) / float64(maxCount)
	if l.previouslyBroken(c.Price, opposite) {
		levelType = models.LevelBreaker
		strength = math.Min(1, strength+breakerStrengthOffset)
	}
	return models.KeyLevel{
		Price:     c.Price,
		Type:      levelType,
		Strength:  strength,
		Timeframe: tf,
	}
}

// previouslyBroken reports whether the opposite-side cluster set contains a
// level at effectively the same price, meaning the level flipped role.
func (l *LevelClusterer) previouslyBroken(price float64, opposite []PriceCluster) bool {
	for _, c := range opposite {
		if math.Abs(c.Price-price)/price <= l.breakerDistance {
			return true
		}
	}
	return false
}
