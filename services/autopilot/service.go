// Package autopilot orders lunches automatically: it scores every
// changeable day's menu, orders the best lunch and cancels the order
// on days where nothing scores well enough.
package autopilot

import (
	"context"
	"fmt"
	"log/slog"

	"sjrako-backend/lib/lunchscore"
	"sjrako-backend/lib/scrapers/sjrako"
	"sjrako-backend/lib/scrapers/sjrako/core"
	"sjrako-backend/lib/scrapers/sjrako/menu"
	"sjrako-backend/lib/scrapers/sjrako/order"
	"sjrako-backend/lib/telemetry"
	"sjrako-backend/lib/timezone"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("services/autopilot")

type Config struct {
	// the trait lunches are ranked by, defaults to "taste"
	ScoreTrait string `json:"score_trait"`
	// a day is skipped (and its order cancelled) when no lunch
	// reaches this score
	MinScore int `json:"min_score"`
	// per-trait bonus weights added on top of the score trait
	Weights map[string]float64 `json:"weights"`
}

// DefaultConfig ranks by taste with a small bonus for meaty dishes and
// skips days where nothing tastes better than mediocre.
func DefaultConfig() Config {
	return Config{
		ScoreTrait: "taste",
		MinScore:   50,
		Weights:    map[string]float64{"meatiness": 0.06},
	}
}

type Service struct {
	client *core.Client
	menus  *menu.Repository
	orders *order.Controller
	oracle lunchscore.Oracle
	config Config
}

func NewService(
	client *core.Client,
	menus *menu.Repository,
	orders *order.Controller,
	oracle lunchscore.Oracle,
	config Config,
) Service {
	if config.ScoreTrait == "" && config.MinScore == 0 && config.Weights == nil {
		config = DefaultConfig()
	}
	return Service{
		client: client,
		menus:  menus,
		orders: orders,
		oracle: oracle,
		config: config,
	}
}

// OrderedLunch is one lunch the autopilot ordered.
type OrderedLunch struct {
	Date   sjrako.Date
	Number int
	Dish   string
}

// Report summarizes one autopilot run.
type Report struct {
	RunId        string
	User         string
	CreditBefore float64
	CreditAfter  float64
	Ordered      []OrderedLunch
	// days where no lunch scored well enough, the order was cancelled
	Skipped []sjrako.Date
	// days where ordering or cancelling did not go through
	Failed []sjrako.Date
}

// Run walks every changeable day on the portal and brings the orders
// in line with the oracle's scores. Per-day failures are collected in
// the report instead of aborting the run.
func (s Service) Run(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	session, loggedIn := s.client.Session()
	if !loggedIn {
		return Report{}, sjrako.ErrAuthenticationRequired
	}

	runId, err := random.String(8)
	if err != nil {
		return Report{}, err
	}
	span.SetAttributes(attribute.String("run_id", runId))
	report := Report{RunId: runId, User: session.Username}

	report.CreditBefore, err = s.client.Credit(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read credit")
		return report, err
	}

	menus, err := s.menus.GetLunchMenus(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch menus")
		return report, err
	}

	now := timezone.Now()
	for _, dayMenu := range menus {
		if !dayMenu.Date.IsChangeable(now) {
			continue
		}
		s.runDay(ctx, dayMenu, &report)
	}

	report.CreditAfter, err = s.client.Credit(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read credit")
		return report, err
	}

	slog.InfoContext(ctx, "autopilot run finished",
		slog.String("run_id", report.RunId),
		slog.String("user", report.User),
		slog.Int("ordered", len(report.Ordered)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("failed", len(report.Failed)),
		slog.Float64("credit_change", report.CreditAfter-report.CreditBefore),
	)
	return report, nil
}

func (s Service) runDay(ctx context.Context, dayMenu sjrako.LunchMenu, report *Report) {
	date := dayMenu.Date

	best, found, err := lunchscore.SelectBest(s.oracle, dayMenu, lunchscore.Options{
		ScoreTrait: s.config.ScoreTrait,
		MinScore:   s.config.MinScore,
		Weights:    s.config.Weights,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to score menu",
			slog.String("date", date.ISO()), slog.String("err", err.Error()))
		report.Failed = append(report.Failed, date)
		return
	}

	if !found {
		// nothing worth eating, make sure no lunch stays ordered
		success, err := s.orders.CancelLunch(ctx, date)
		if err != nil || !success {
			slog.WarnContext(ctx, "failed to cancel lunch on a skipped day",
				slog.String("date", date.ISO()), slog.Any("err", err))
			report.Failed = append(report.Failed, date)
			return
		}
		slog.InfoContext(ctx, "skipping day, no lunch scored well enough",
			slog.String("date", date.ISO()))
		report.Skipped = append(report.Skipped, date)
		return
	}

	success, err := s.orders.SetLunch(ctx, date, best.Number)
	if err != nil || !success {
		slog.WarnContext(ctx, "failed to order lunch",
			slog.String("date", date.ISO()),
			slog.Int("number", best.Number),
			slog.Any("err", err))
		report.Failed = append(report.Failed, date)
		return
	}
	dish := dayMenu.FullMainDish(best)
	slog.InfoContext(ctx, "ordered lunch",
		slog.String("date", date.ISO()),
		slog.Int("number", best.Number),
		slog.String("dish", dish))
	report.Ordered = append(report.Ordered, OrderedLunch{
		Date:   date,
		Number: best.Number,
		Dish:   dish,
	})
}

// Summary renders the report the way the portal displays dates, for
// logs and the emailed version.
func (r Report) Summary() string {
	out := fmt.Sprintf("Autopilot run %s for %s\n", r.RunId, r.User)
	out += fmt.Sprintf("Credit: %.2f Kč -> %.2f Kč\n", r.CreditBefore, r.CreditAfter)

	for _, ordered := range r.Ordered {
		out += fmt.Sprintf("ORDERED %q (lunch %d) for %s\n", ordered.Dish, ordered.Number, ordered.Date)
	}
	for _, date := range r.Skipped {
		out += fmt.Sprintf("SKIPPED %s, go to a restaurant that day\n", date)
	}
	for _, date := range r.Failed {
		out += fmt.Sprintf("FAILED to change the order for %s\n", date)
	}
	return out
}
