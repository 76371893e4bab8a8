package calculator

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"behavior-fit/pkg/models"

	"github.com/schollz/progressbar/v3"
)

// cellSeedStride espace les graines des cellules pour que les flux (cellule,
// essai) ne se recouvrent jamais tant que nfold < stride.
const cellSeedStride = 1_000_003

// Arange énumère la suite arithmétique [min, max) au pas donné, borne haute
// exclue. Plage invalide (min >= max ou pas <= 0) → suite vide : erreur
// d'appelant, pas corrigée.
func Arange(min, max, step float64) []float64 {
	if step <= 0 || min >= max {
		return nil
	}
	n := int(math.Ceil((max-min)/step - 1e-9))
	out := make([]float64, n)
	for i := range out {
		out[i] = min + float64(i)*step
	}
	return out
}

// Search balaie la grille (corrélation × seuil). Pour chaque cellule :
// nfold essais — rescoring de la propension avec du bruit frais, marquage,
// agrégation filtrée à 0 < cohort_day < horizon, métrique d'erreur — puis
// moyenne. Les cellules sont indépendantes et tournent sur un pool borné de
// workers ; chaque (cellule, essai) a son propre flux aléatoire dérivé de la
// graine, jamais partagé. Le premier échec interrompt toute la recherche.
func Search(frame *Frame, cfg models.Config) (models.SearchResult, error) {
	corrs := Arange(cfg.Correlation[0], cfg.Correlation[1], cfg.Resolution)
	cutoffs := Arange(cfg.CutoffPoints[0], cfg.CutoffPoints[1], cfg.Resolution)

	res := models.SearchResult{
		Errors:       make([][]float64, len(corrs)),
		Correlations: corrs,
		Cutoffs:      cutoffs,
	}
	for i := range res.Errors {
		res.Errors[i] = make([]float64, len(cutoffs))
	}
	cells := len(corrs) * len(cutoffs)
	if cells == 0 {
		return res, nil
	}

	nfold := cfg.NFold
	if nfold < 1 {
		nfold = 1
	}
	horizon := cfg.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > cells {
		workers = cells
	}

	var bar *progressbar.ProgressBar
	if !cfg.Silent {
		bar = progressbar.Default(int64(cells))
	}

	jobs := make(chan int, cells)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for c := range jobs {
				mu.Lock()
				stop := firstErr != nil
				mu.Unlock()
				if stop {
					continue
				}

				i, j := c/len(cutoffs), c%len(cutoffs)
				corr, cutoff := corrs[i], cutoffs[j]

				sum := 0.0
				var cellErr error
				for t := 0; t < nfold; t++ {
					rng := rand.New(rand.NewSource(cfg.Seed + int64(c)*cellSeedStride + int64(t)))
					prop := PropensityScores(frame.Engagement, corr, rng)
					rows := FilterDays(frame.Model(prop, cutoff, rng), horizon)
					e, err := MetricError(rows)
					if err != nil {
						cellErr = fmt.Errorf("cellule corr=%.3f cutoff=%.3f: %w", corr, cutoff, err)
						break
					}
					sum += e
				}
				if cellErr != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = cellErr
					}
					mu.Unlock()
					continue
				}

				avg := sum / float64(nfold)
				res.Errors[i][j] = avg
				if bar != nil {
					_ = bar.Add(1)
				}
				if cfg.Verbose {
					log.Printf("[INFO] corr=%.3f cutoff=%.3f err=%.6f", corr, cutoff, avg)
				}
			}
		}()
	}
	for c := 0; c < cells; c++ {
		jobs <- c
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return models.SearchResult{}, firstErr
	}
	return res, nil
}
