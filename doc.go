/*
Package simclust finds near-duplicate items and groups them into clusters.

Given a collection of items and either a distance function with a maximum
radius or a token-set similarity with a minimum threshold, simclust finds
every pair that meets the threshold and assembles the pairs into clusters,
without comparing every item against every other item.

# Overview

A run flows through four stages:

	Registry → Index → PairStream → (verification) → ClusterBuilder

Items are referred to by uint32 ids in input order. Indexes only ever see
ids and an oracle; original values come back when clusters are materialized.

# Quick Start

Cluster strings by edit distance:

	package main

	import (
	    "context"
	    "fmt"
	    "log"

	    "github.com/wizenheimer/simclust"
	)

	func main() {
	    opts := simclust.DefaultOptions()
	    opts.Mode = simclust.DistanceMode
	    opts.Index = simclust.VPTreeIndexKind
	    opts.Threshold = 2

	    cfg := simclust.NewConfig[string](opts).
	        WithDistance(simclust.EditDistance)

	    clusters, err := simclust.Cluster(context.Background(),
	        []string{"book", "back", "shelf"}, cfg)
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(clusters) // [[book back]]
	}

# Index Strategies

Distance mode (any metric):
  - VPTreeIndexKind: vantage-point tree, O(log n) radius queries for small radii
  - LAESAIndexKind: pivot table, avoids oracle calls with triangle-inequality bounds
  - BruteForceIndexKind: every pair, the exact baseline

Similarity mode (Jaccard over token multisets):
  - AllPairsIndexKind: prefix and length filtering
  - PPJoinIndexKind: adds positional filtering
  - PPJoinPlusIndexKind: adds suffix filtering
  - BruteForceIndexKind: every pair, with a SimilarityOracle or token Jaccard

All join variants return the same pairs. They differ only in how many
candidates reach exact verification.

# Cluster Policies

  - ConnectedComponentsPolicy: components of the pair graph, order-independent
  - LeaderPolicy: first-come leaders, claimed ids are never reassigned
  - FuzzyPolicy: clusters grow and merge transitively as pairs arrive

Ids that appear in no pair are not reported unless IncludeSingletons is set.

# Raw Pairs

CandidatePairs returns the verified pair stream without clustering:

	stream, err := simclust.CandidatePairs(ctx, items, cfg)
	if err != nil {
	    return err
	}
	for p, err := range simclust.Pairs(stream) {
	    if err != nil {
	        return err
	    }
	    fmt.Println(p.I, p.J, p.Score)
	}

Indexes can also be used directly, including radius searches:

	idx, err := simclust.NewVPTreeIndex(ctx, metric, n, 2)
	neighbors, err := idx.NewSearch().
	    WithNode(0, 5).
	    WithRadius(1).
	    Execute()

# Configuration

Options can be loaded from YAML:

	mode: similarity
	threshold: 0.8
	index: ppjoin-plus
	policy: fuzzy
	workers: 4

Oracles, the tokenizer, an extra Verifier and a zerolog.Logger are set on
Config.

# Thread Safety

Built indexes are read-only, so concurrent searches are safe. A PairStream
and a ClusterBuilder belong to one goroutine. Verification can run on a
bounded worker pool (Options.Workers); results are re-sequenced so output does
not depend on scheduling.
*/
package simclust
