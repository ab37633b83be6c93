package core

import (
	"log/slog"
	"time"

	"core/cron"
	"core/handlers"
	"core/metrics"
	"core/middleware"
	"core/notify"
	"core/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	limiterPruneInterval = time.Minute
	limiterMaxIdle       = 10 * time.Minute
)

// Config tunes the judging module. Zero values fall back to defaults.
type Config struct {
	TotalRounds        int
	RoundCloseSchedule string
	AutoAdvance        bool
	// ScoreRateLimit is in requests per second per client IP; 0 disables it.
	ScoreRateLimit  float64
	ScoreRateBurst  int
	StreamKeepAlive time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Broker feeds /stream. A private one is created when nil.
	Broker *notify.Broker
	// Mirrors receive every event besides the broker, e.g. NATS.
	Mirrors []notify.Publisher
}

type Module struct {
	CriterionHandler   *handlers.CriterionHandler
	CriterionService   *services.CriterionService
	TeamHandler        *handlers.TeamHandler
	TeamService        *services.TeamService
	RoundHandler       *handlers.RoundHandler
	RoundService       *services.RoundService
	EliminationService *services.EliminationService
	ExportService      *services.ExportService
	ScoreHandler       *handlers.ScoreHandler
	ScoreService       *services.ScoreService
	StreamHandler      *handlers.StreamHandler
	AutoCloseService   *services.AutoCloseService
	Broker             *notify.Broker
	Scheduler          *cron.Scheduler
	scoreLimiter       *middleware.SubmissionLimiter
	janitorStop        chan struct{}
	logger             *slog.Logger
	db                 *gorm.DB
}

func NewModule(db *gorm.DB, cfg Config) *Module {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	broker := cfg.Broker
	if broker == nil {
		broker = notify.NewBroker(logger)
	}

	publisher := notify.Fanout(append([]notify.Publisher{broker}, cfg.Mirrors...))
	deps := services.Deps{
		Logger:      logger,
		Publisher:   publisher,
		Metrics:     cfg.Metrics,
		TotalRounds: cfg.TotalRounds,
	}

	criterionService := services.NewCriterionService(db)
	criterionHandler := handlers.NewCriterionHandler(criterionService)

	teamService := services.NewTeamService(db)
	teamHandler := handlers.NewTeamHandler(teamService)

	roundService := services.NewRoundService(db, deps)
	eliminationService := services.NewEliminationService(db, deps)
	exportService := services.NewExportService(eliminationService)
	roundHandler := handlers.NewRoundHandler(roundService, eliminationService, exportService)

	scoreService := services.NewScoreService(db, teamService, criterionService, deps)
	scoreHandler := handlers.NewScoreHandler(scoreService)

	streamHandler := handlers.NewStreamHandler(broker, cfg.StreamKeepAlive)

	// Round deadline automation
	autoCloseService := services.NewAutoCloseService(roundService, eliminationService, cfg.AutoAdvance)
	scheduler := cron.NewScheduler(cfg.RoundCloseSchedule, autoCloseService, logger)

	var limiter *middleware.SubmissionLimiter
	if cfg.ScoreRateLimit > 0 {
		burst := cfg.ScoreRateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = middleware.NewSubmissionLimiter(rate.Limit(cfg.ScoreRateLimit), burst)
	}

	return &Module{
		CriterionHandler:   criterionHandler,
		CriterionService:   criterionService,
		TeamHandler:        teamHandler,
		TeamService:        teamService,
		RoundHandler:       roundHandler,
		RoundService:       roundService,
		EliminationService: eliminationService,
		ExportService:      exportService,
		ScoreHandler:       scoreHandler,
		ScoreService:       scoreService,
		StreamHandler:      streamHandler,
		AutoCloseService:   autoCloseService,
		Broker:             broker,
		Scheduler:          scheduler,
		scoreLimiter:       limiter,
		logger:             logger,
		db:                 db,
	}
}

func (m *Module) SetupRoutes(r *gin.Engine) {
	criteria := r.Group("/criteria")
	{
		criteria.GET("", m.CriterionHandler.GetAllCriteria)
		criteria.POST("", m.CriterionHandler.CreateCriterion)
		criteria.GET("/:id", m.CriterionHandler.GetCriterion)
		criteria.PUT("/:id", m.CriterionHandler.UpdateCriterion)
		criteria.DELETE("/:id", m.CriterionHandler.DeleteCriterion)
	}

	teams := r.Group("/teams")
	{
		teams.GET("", m.TeamHandler.GetAllTeams)
		teams.POST("", m.TeamHandler.CreateTeam)
		teams.GET("/:id", m.TeamHandler.GetTeam)
		teams.PUT("/:id", m.TeamHandler.UpdateTeam)
		teams.DELETE("/:id", m.TeamHandler.DeleteTeam)
		teams.GET("/:id/members", m.TeamHandler.GetMembers)
		teams.POST("/:id/members", m.TeamHandler.AddMember)
	}

	members := r.Group("/members")
	{
		members.GET("/:id", m.TeamHandler.GetMember)
		members.PUT("/:id", m.TeamHandler.UpdateMember)
		members.DELETE("/:id", m.TeamHandler.DeleteMember)
	}

	rounds := r.Group("/rounds")
	{
		rounds.GET("", m.RoundHandler.GetAllRounds)
		rounds.POST("", m.RoundHandler.CreateFirstRound)
		rounds.GET("/:id", m.RoundHandler.GetRound)
		rounds.DELETE("/:id", m.RoundHandler.DeleteRound)
		rounds.GET("/:id/teams", m.RoundHandler.GetParticipants)
		rounds.GET("/:id/teams-marks", m.ScoreHandler.GetTeamsWithMarks)
		rounds.POST("/:id/teams/:teamId/scores", middleware.RateLimit(m.scoreLimiter, "id"), m.ScoreHandler.SubmitScores)
		rounds.GET("/:id/teams/:teamId/scores", m.ScoreHandler.GetTeamScores)
		rounds.POST("/:id/close", m.RoundHandler.CloseRound)
		rounds.GET("/:id/elimination", m.RoundHandler.GetEliminationResults)
		rounds.POST("/:id/create-next", m.RoundHandler.CreateNextRound)
		rounds.GET("/:id/winner", m.RoundHandler.GetWinner)
		rounds.GET("/:id/results.xlsx", m.RoundHandler.ExportResults)
		rounds.GET("/:id/results.png", m.RoundHandler.ResultsChart)
	}

	r.GET("/stream", m.StreamHandler.Stream)
}

// StartScheduler starts the round deadline scheduler and the rate limiter
// janitor.
func (m *Module) StartScheduler() error {
	m.logger.Info("starting core module scheduler")
	if err := m.Scheduler.Start(); err != nil {
		return err
	}
	if m.scoreLimiter != nil && m.janitorStop == nil {
		m.janitorStop = make(chan struct{})
		go m.scoreLimiter.RunJanitor(limiterPruneInterval, limiterMaxIdle, m.janitorStop)
	}
	return nil
}

// StopScheduler stops the cron scheduler
func (m *Module) StopScheduler() {
	m.logger.Info("stopping core module scheduler")
	if m.janitorStop != nil {
		close(m.janitorStop)
		m.janitorStop = nil
	}
	m.Scheduler.Stop()
}

// RunDeadlineNow closes the latest open round as if its deadline had passed.
func (m *Module) RunDeadlineNow() {
	m.logger.Info("manually triggering round deadline")
	m.Scheduler.RunNow()
}

// Close releases the event broker. Open /stream connections end.
func (m *Module) Close() error {
	return m.Broker.Close()
}
