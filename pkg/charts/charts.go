// Package charts rend la surface d'erreur et les courbes de cohortes en PNG.
// Couche de présentation pure : aucun calcul, des tableaux numériques en
// entrée, des fichiers image en sortie.
package charts

import (
	"fmt"
	"image/color"
	"math"

	"behavior-fit/pkg/models"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	blue   = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	red    = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	orange = color.RGBA{R: 230, G: 140, B: 20, A: 255}
	green  = color.RGBA{R: 40, G: 140, B: 40, A: 255}
)

// surfaceGrid adapte SearchResult à plotter.GridXYZ : corrélation en X,
// seuil en Y.
type surfaceGrid struct {
	res models.SearchResult
}

func (g surfaceGrid) Dims() (c, r int)   { return len(g.res.Correlations), len(g.res.Cutoffs) }
func (g surfaceGrid) Z(c, r int) float64 { return g.res.Errors[c][r] }
func (g surfaceGrid) X(c int) float64    { return g.res.Correlations[c] }
func (g surfaceGrid) Y(r int) float64    { return g.res.Cutoffs[r] }

// Heatmap dessine la surface d'erreur de la recherche sur grille.
func Heatmap(res models.SearchResult, path string) error {
	if len(res.Correlations) == 0 || len(res.Cutoffs) == 0 {
		return fmt.Errorf("grille vide")
	}

	p := plot.New()
	p.Title.Text = "Grid Search Error"
	p.X.Label.Text = "Correlation"
	p.Y.Label.Text = "Cutoff"

	pal := moreland.SmoothBlueRed().Palette(255)
	h := plotter.NewHeatMap(surfaceGrid{res: res}, pal)
	p.Add(h)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save heatmap: %w", err)
	}
	return nil
}

// series décrit une courbe : nom, couleur, extraction de la valeur.
type series struct {
	name  string
	color color.RGBA
	value func(models.CohortMetricsRow) float64
}

// RetentionChart trace rétention globale, rétention des payeurs et rétention
// des marqués.
func RetentionChart(rows []models.CohortMetricsRow, path string) error {
	return lineChart(rows, "Retention", "Retention Rate (%)", path, []series{
		{"Retention", blue, func(r models.CohortMetricsRow) float64 { return r.Retention }},
		{"Payer Retention", red, func(r models.CohortMetricsRow) float64 { return r.PayerRetention }},
		{"Flagged Retention", orange, func(r models.CohortMetricsRow) float64 { return r.FlaggedRetention }},
	})
}

// ConversionChart trace la conversion de cohorte réelle et simulée.
func ConversionChart(rows []models.CohortMetricsRow, path string) error {
	return lineChart(rows, "Cohort Conversion", "Cohort Conversion (%)", path, []series{
		{"Cohort Conversion", red, func(r models.CohortMetricsRow) float64 { return r.CohortConversion }},
		{"Cohort Conversion Flagged", orange, func(r models.CohortMetricsRow) float64 { return r.CohortConversionFlagged }},
	})
}

// DailyPurchaseChart trace le taux d'achat journalier réel et simulé.
func DailyPurchaseChart(rows []models.CohortMetricsRow, path string) error {
	return lineChart(rows, "Daily Purchase", "Daily Purchase Rate (%)", path, []series{
		{"Daily Purchase Rate", red, func(r models.CohortMetricsRow) float64 { return r.DailyPurchaseRate }},
		{"Daily Flagged Rate", orange, func(r models.CohortMetricsRow) float64 { return r.DailyFlaggedRate }},
	})
}

// ErrorChart trace l'erreur |a-b|/(a+b) par jour pour les deux paires de
// métriques de la fonction de coût.
func ErrorChart(rows []models.CohortMetricsRow, path string) error {
	pair := func(a, b func(models.CohortMetricsRow) float64) func(models.CohortMetricsRow) float64 {
		return func(r models.CohortMetricsRow) float64 {
			av, bv := a(r), b(r)
			return math.Abs(av-bv) / (av + bv)
		}
	}
	return lineChart(rows, "Error", "Error", path, []series{
		{"Retention Error", green, pair(
			func(r models.CohortMetricsRow) float64 { return r.PayerRetention },
			func(r models.CohortMetricsRow) float64 { return r.FlaggedRetention })},
		{"Conversion Error", orange, pair(
			func(r models.CohortMetricsRow) float64 { return r.CohortConversion },
			func(r models.CohortMetricsRow) float64 { return r.CohortConversionFlagged })},
	})
}

func lineChart(rows []models.CohortMetricsRow, title, yLabel, path string, ss []series) error {
	if len(rows) == 0 {
		return fmt.Errorf("aucune ligne à tracer")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Days Since Cohort Start"
	p.Y.Label.Text = yLabel

	for _, s := range ss {
		xys := make(plotter.XYs, 0, len(rows))
		for _, r := range rows {
			y := s.value(r)
			// les jours à dénominateur nul (NaN) cassent le tracé, on les saute
			if math.IsNaN(y) || math.IsInf(y, 0) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(r.CohortDay), Y: y})
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("line %s: %w", s.name, err)
		}
		line.Color = s.color
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", title, err)
	}
	return nil
}
