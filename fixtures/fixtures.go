package fixtures

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"core/apperr"
	"core/models"
	"core/services"

	"github.com/brianvoe/gofakeit/v7"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// DefaultTeamCount is how many teams GenerateTestData creates when asked for none.
const DefaultTeamCount = 12

var defaultCriteria = []struct {
	name       string
	defaultMax int
}{
	{"Innovation", 10},
	{"Technical execution", 10},
	{"Design", 10},
	{"Presentation", 10},
	{"Impact", 20},
}

type Fixtures struct {
	db       *gorm.DB
	faker    *gofakeit.Faker
	logger   *slog.Logger
	teams    *services.TeamService
	criteria *services.CriterionService
	rounds   *services.RoundService
	scores   *services.ScoreService
}

// NewFixtures builds a fixture generator. A zero seed picks one from the clock.
func NewFixtures(db *gorm.DB, seed uint64, logger *slog.Logger) *Fixtures {
	if logger == nil {
		logger = slog.Default()
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	deps := services.Deps{Logger: logger}
	teams := services.NewTeamService(db)
	criteria := services.NewCriterionService(db)
	return &Fixtures{
		db:       db,
		faker:    gofakeit.New(seed),
		logger:   logger,
		teams:    teams,
		criteria: criteria,
		rounds:   services.NewRoundService(db, deps),
		scores:   services.NewScoreService(db, teams, criteria, deps),
	}
}

// GenerateTestData creates the default criteria, teamCount teams with
// members, opens the first round and scores most of the teams.
func (f *Fixtures) GenerateTestData(ctx context.Context, teamCount int) error {
	f.logger.Info("starting fixtures generation")
	if teamCount <= 0 {
		teamCount = DefaultTeamCount
	}

	criteria, err := f.generateCriteria(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate criteria: %w", err)
	}

	teams, err := f.generateTeams(ctx, teamCount)
	if err != nil {
		return fmt.Errorf("failed to generate teams: %w", err)
	}

	round, err := f.rounds.CreateFirstRound(ctx, 0)
	if errors.Is(err, apperr.ErrFirstRoundExists) {
		f.logger.Warn("a round already exists, skipping scores")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create first round: %w", err)
	}

	scored, err := f.generateScores(ctx, round.ID, teams, criteria)
	if err != nil {
		return fmt.Errorf("failed to generate scores: %w", err)
	}

	f.logger.Info("fixtures generated",
		"criteria", len(criteria),
		"teams", len(teams),
		"round_id", round.ID,
		"scored_teams", scored)
	return nil
}

func (f *Fixtures) generateCriteria(ctx context.Context) ([]models.Criterion, error) {
	criteria := make([]models.Criterion, 0, len(defaultCriteria))
	for _, def := range defaultCriteria {
		criterion, err := f.criteria.CreateCriterion(ctx, def.name, def.defaultMax)
		if errors.Is(err, apperr.ErrCriterionNameTaken) {
			f.logger.Debug("criterion exists", "name", def.name)
			continue
		}
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, *criterion)
	}

	// Score against the whole catalog, including criteria created earlier.
	return f.criteria.GetAllCriteria(ctx)
}

func (f *Fixtures) generateTeams(ctx context.Context, count int) ([]models.Team, error) {
	teams := make([]models.Team, 0, count)
	for attempts := 0; len(teams) < count && attempts < count*5; attempts++ {
		team, err := f.teams.CreateTeam(ctx, models.CreateTeamRequest{
			Name:               f.faker.AppName() + " " + f.faker.Animal(),
			ProjectDescription: f.faker.Paragraph(1, 2, 12, " "),
			Bio:                f.faker.Sentence(f.faker.Number(6, 12)),
			Logo:               f.faker.URL(),
		})
		if errors.Is(err, apperr.ErrTeamNameTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		for i := f.faker.Number(2, 4); i > 0; i-- {
			if _, err := f.teams.AddMember(ctx, team.ID, models.CreateMemberRequest{
				Name:  f.faker.Name(),
				Bio:   f.faker.JobTitle(),
				Photo: f.faker.URL(),
			}); err != nil {
				return nil, err
			}
		}

		teams = append(teams, *team)
		f.logger.Debug("created team", "name", team.Name, "id", team.ID)
	}

	f.logger.Info("created teams", "count", len(teams))
	return teams, nil
}

// generateScores submits random points for roughly three quarters of the
// teams so some of them show up unscored.
func (f *Fixtures) generateScores(ctx context.Context, roundID uint, teams []models.Team, criteria []models.Criterion) (int, error) {
	if len(criteria) == 0 {
		return 0, nil
	}

	scored := 0
	for _, team := range teams {
		if f.faker.Number(1, 4) == 1 {
			continue
		}
		points := make(map[uint]int, len(criteria))
		for _, c := range criteria {
			points[c.ID] = f.faker.Number(0, c.DefaultMax)
		}
		if _, err := f.scores.SubmitScores(ctx, team.ID, roundID, points); err != nil {
			return scored, fmt.Errorf("team %d: %w", team.ID, err)
		}
		scored++
	}
	return scored, nil
}

// ClearAllData removes every judging row and restarts the id sequences.
func (f *Fixtures) ClearAllData(ctx context.Context) error {
	f.logger.Info("clearing all fixture data")
	db := f.db.WithContext(ctx)

	// Dependents first.
	for i := len(models.Tables) - 1; i >= 0; i-- {
		if err := db.Exec("DELETE FROM " + models.Tables[i]).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", models.Tables[i], err)
		}
	}

	serial := []string{"teams", "members", "criteria", "score_sheets", "score_entries"}
	for _, table := range serial {
		var err error
		if db.Dialector.Name() == "postgres" {
			err = db.Exec(fmt.Sprintf("ALTER SEQUENCE %s_id_seq RESTART WITH 1", table)).Error
		} else {
			err = db.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table).Error
		}
		if err != nil {
			f.logger.Warn("failed to reset sequence", "table", table, "error", err)
		}
	}

	f.logger.Info("all fixture data cleared")
	return nil
}

// Regenerate clears everything and generates a fresh data set.
func (f *Fixtures) Regenerate(ctx context.Context, teamCount int) error {
	if err := f.ClearAllData(ctx); err != nil {
		return err
	}
	return f.GenerateTestData(ctx, teamCount)
}

type SeedFile struct {
	Criteria []SeedCriterion `yaml:"criteria"`
	Teams    []SeedTeam      `yaml:"teams"`
}

type SeedCriterion struct {
	Name       string `yaml:"name"`
	DefaultMax int    `yaml:"default_max"`
}

type SeedTeam struct {
	Name               string       `yaml:"name"`
	ProjectDescription string       `yaml:"project_description"`
	Bio                string       `yaml:"bio"`
	Logo               string       `yaml:"logo"`
	Members            []SeedMember `yaml:"members"`
}

type SeedMember struct {
	Name  string `yaml:"name"`
	Bio   string `yaml:"bio"`
	Photo string `yaml:"photo"`
}

// SeedResult counts what a seed run created. Entries whose name is already
// taken are skipped.
type SeedResult struct {
	CriteriaCreated int
	TeamsCreated    int
	MembersCreated  int
	Skipped         int
}

// SeedFromFile loads criteria and teams from a YAML file.
func (f *Fixtures) SeedFromFile(ctx context.Context, path string) (*SeedResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return f.Seed(ctx, seed)
}

func (f *Fixtures) Seed(ctx context.Context, seed SeedFile) (*SeedResult, error) {
	result := &SeedResult{}

	for _, c := range seed.Criteria {
		_, err := f.criteria.CreateCriterion(ctx, c.Name, c.DefaultMax)
		if errors.Is(err, apperr.ErrCriterionNameTaken) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("criterion %q: %w", c.Name, err)
		}
		result.CriteriaCreated++
	}

	for _, t := range seed.Teams {
		team, err := f.teams.CreateTeam(ctx, models.CreateTeamRequest{
			Name:               t.Name,
			ProjectDescription: t.ProjectDescription,
			Bio:                t.Bio,
			Logo:               t.Logo,
		})
		if errors.Is(err, apperr.ErrTeamNameTaken) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("team %q: %w", t.Name, err)
		}
		result.TeamsCreated++

		for _, m := range t.Members {
			if _, err := f.teams.AddMember(ctx, team.ID, models.CreateMemberRequest{
				Name:  m.Name,
				Bio:   m.Bio,
				Photo: m.Photo,
			}); err != nil {
				return result, fmt.Errorf("member %q of team %q: %w", m.Name, t.Name, err)
			}
			result.MembersCreated++
		}
	}

	f.logger.Info("seed applied",
		"criteria", result.CriteriaCreated,
		"teams", result.TeamsCreated,
		"members", result.MembersCreated,
		"skipped", result.Skipped)
	return result, nil
}
