package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/liftcontrol/go/internal/models"
	"github.com/mcdev12/liftcontrol/go/internal/platform/clock"
	"github.com/mcdev12/liftcontrol/go/internal/platform/session"
	"gopkg.in/yaml.v3"
)

// lifterNamespace derives stable lifter ids from the competition file so a
// restart upserts the same rows.
var lifterNamespace = uuid.MustParse("6f1c8f3e-3f4a-4c62-9a57-5d7f0d3e9b21")

// Competition is the YAML competition file
type Competition struct {
	Name           string        `yaml:"name"`
	Referees       int           `yaml:"referees"`
	AutoStartClock bool          `yaml:"auto_start_clock"`
	OneMinute      time.Duration `yaml:"one_minute"`
	TwoMinutes     time.Duration `yaml:"two_minutes"`
	InitialWarning time.Duration `yaml:"initial_warning"`
	FinalWarning   time.Duration `yaml:"final_warning"`

	Platforms []PlatformConfig `yaml:"platforms"`
	Groups    []GroupConfig    `yaml:"groups"`
}

// PlatformConfig describes one competition platform
type PlatformConfig struct {
	Name   string `yaml:"name"`
	Master bool   `yaml:"master"`
	Group  string `yaml:"group"`

	// overrides of the competition defaults
	Referees       int   `yaml:"referees"`
	AutoStartClock *bool `yaml:"auto_start_clock"`
}

// GroupConfig lists the lifters of a group
type GroupConfig struct {
	Name    string         `yaml:"name"`
	Lifters []LifterConfig `yaml:"lifters"`
}

// LifterConfig is one registration entry
type LifterConfig struct {
	FirstName  string  `yaml:"first_name"`
	LastName   string  `yaml:"last_name"`
	Team       string  `yaml:"team"`
	Lot        int     `yaml:"lot"`
	BodyWeight float64 `yaml:"body_weight"`
	Snatch     int     `yaml:"snatch"`     // snatch opener
	CleanJerk  int     `yaml:"clean_jerk"` // clean & jerk opener
}

// LoadCompetition reads and validates a competition file.
func LoadCompetition(path string) (*Competition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read competition file: %w", err)
	}
	return ParseCompetition(data)
}

// ParseCompetition parses a competition document and fills defaults.
func ParseCompetition(data []byte) (*Competition, error) {
	var c Competition
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse competition: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Competition) applyDefaults() {
	clk := clock.DefaultConfig()
	if c.Referees == 0 {
		c.Referees = 3
	}
	if c.OneMinute == 0 {
		c.OneMinute = 60 * time.Second
	}
	if c.TwoMinutes == 0 {
		c.TwoMinutes = 120 * time.Second
	}
	if c.InitialWarning == 0 {
		c.InitialWarning = clk.InitialWarning
	}
	if c.FinalWarning == 0 {
		c.FinalWarning = clk.FinalWarning
	}
}

// Validate checks the competition for inconsistencies.
func (c *Competition) Validate() error {
	var errs []error
	if c.Referees < 1 {
		errs = append(errs, fmt.Errorf("referees must be positive, got %d", c.Referees))
	}
	if c.FinalWarning >= c.InitialWarning {
		errs = append(errs, fmt.Errorf("final warning %v must be below initial warning %v", c.FinalWarning, c.InitialWarning))
	}
	if len(c.Platforms) == 0 {
		errs = append(errs, errors.New("at least one platform is required"))
	}

	seen := make(map[string]bool)
	for _, p := range c.Platforms {
		if p.Name == "" {
			errs = append(errs, errors.New("platform name is required"))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("platform %s declared twice", p.Name))
		}
		seen[p.Name] = true
		if p.Group != "" && c.findGroup(p.Group) == nil {
			errs = append(errs, fmt.Errorf("platform %s references unknown group %s", p.Name, p.Group))
		}
	}
	return errors.Join(errs...)
}

// SessionConfig returns the session settings of a platform.
func (c *Competition) SessionConfig(p PlatformConfig) session.Config {
	cfg := session.DefaultConfig(p.Name)
	cfg.PanelSize = c.Referees
	if p.Referees > 0 {
		cfg.PanelSize = p.Referees
	}
	cfg.AutoStartClock = c.AutoStartClock
	if p.AutoStartClock != nil {
		cfg.AutoStartClock = *p.AutoStartClock
	}
	cfg.OneMinute = c.OneMinute
	cfg.TwoMinutes = c.TwoMinutes
	cfg.Clock = clock.Config{InitialWarning: c.InitialWarning, FinalWarning: c.FinalWarning}
	cfg.Master = p.Master
	return cfg
}

// Group builds the lifters of a group from the file. Ids are stable across loads.
func (c *Competition) Group(name string) (*models.Group, error) {
	gc := c.findGroup(name)
	if gc == nil {
		return nil, fmt.Errorf("unknown group %s", name)
	}

	g := &models.Group{Name: gc.Name}
	for _, lc := range gc.Lifters {
		l := &models.Lifter{
			ID:         uuid.NewSHA1(lifterNamespace, []byte(fmt.Sprintf("%s/%s/%s/%d", gc.Name, lc.LastName, lc.FirstName, lc.Lot))),
			FirstName:  lc.FirstName,
			LastName:   lc.LastName,
			Team:       lc.Team,
			GroupName:  gc.Name,
			LotNumber:  lc.Lot,
			BodyWeight: lc.BodyWeight,
		}
		l.Attempts[0].Declaration = lc.Snatch
		l.Attempts[models.AttemptsPerLift].Declaration = lc.CleanJerk
		g.Lifters = append(g.Lifters, l)
	}
	return g, nil
}

func (c *Competition) findGroup(name string) *GroupConfig {
	for i := range c.Groups {
		if c.Groups[i].Name == name {
			return &c.Groups[i]
		}
	}
	return nil
}
