package notifications

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/angelmondragon/mapas-backend/internal/entities"
	"github.com/angelmondragon/mapas-backend/pkg/config"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	"github.com/angelmondragon/mapas-backend/pkg/i18n"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
	"github.com/angelmondragon/mapas-backend/pkg/metrics"
	"go.uber.org/multierr"
	"golang.org/x/text/language"
)

const dateLayout = "02/01/2006"

// Parts selects which notification checks a generation run performs.
type Parts uint8

const (
	PartLastAccess Parts = 1 << iota
	PartStaleEntities
	PartSealExpiry

	AllParts = PartLastAccess | PartStaleEntities | PartSealExpiry
)

func (p Parts) has(part Parts) bool {
	return p&part != 0
}

type entityStore interface {
	ListAgentsWithSeals(ctx context.Context, userID int64) ([]models.Agent, error)
	ListSpacesWithSeals(ctx context.Context, userID int64) ([]models.Space, error)
	MarkSentNotification(ctx context.Context, kind enums.EntityKind, id, notificationID int64) error
}

// Request describes one generation run for a user.
type Request struct {
	User   *models.User
	Parts  Parts
	Locale language.Tag
}

// Result reports how many notifications a run created.
type Result struct {
	Created int `json:"created"`
}

// Generator builds the reminder notifications shown to a user about their
// last access, stale agents and spaces, and expiring seals.
type Generator struct {
	repo     Repository
	entities entityStore
	cfg      config.NotificationsConfig
	baseURL  string
	locale   language.Tag
	metrics  *metrics.NotificationMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// GeneratorParams bundles the generator dependencies.
type GeneratorParams struct {
	Repo     Repository
	Entities entityStore
	Config   config.NotificationsConfig
	BaseURL  string
	Locale   language.Tag
	Metrics  *metrics.NotificationMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewGenerator(params GeneratorParams) (*Generator, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository is required")
	}
	if params.Entities == nil {
		return nil, fmt.Errorf("entities repository is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	locale := params.Locale
	if locale == language.Und {
		locale = i18n.Default()
	}
	return &Generator{
		repo:     params.Repo,
		entities: params.Entities,
		cfg:      params.Config,
		baseURL:  params.BaseURL,
		locale:   locale,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Generate runs the requested checks for req.User. A failing entity does
// not stop the others; all failures are returned together.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	var result Result
	if req.User == nil || req.User.ID <= 0 {
		return result, fmt.Errorf("user is required")
	}
	if req.Locale == language.Und {
		req.Locale = g.locale
	}
	now := g.now()

	var errs error
	if req.Parts.has(PartLastAccess) && g.cfg.PluginEnabled() && g.cfg.UserAccessDays > 0 {
		errs = multierr.Append(errs, g.lastAccess(ctx, req, now, &result))
	}

	needStale := req.Parts.has(PartStaleEntities) && g.cfg.PluginEnabled() && g.cfg.EntitiesUpdateDays > 0
	needSeals := req.Parts.has(PartSealExpiry) && g.cfg.PluginEnabled() && g.cfg.SealToExpireDays > 0
	if !needStale && !needSeals {
		return result, errs
	}

	agents, err := g.entities.ListAgentsWithSeals(ctx, req.User.ID)
	if err != nil {
		return result, multierr.Append(errs, fmt.Errorf("list agents: %w", err))
	}
	spaces, err := g.entities.ListSpacesWithSeals(ctx, req.User.ID)
	if err != nil {
		return result, multierr.Append(errs, fmt.Errorf("list spaces: %w", err))
	}

	if needStale {
		errs = multierr.Append(errs, g.staleEntities(ctx, req, now, agents, spaces, &result))
	}
	if needSeals {
		errs = multierr.Append(errs, g.sealExpiry(ctx, req, now, agents, spaces, &result))
	}
	return result, errs
}

func wholeDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func (g *Generator) lastAccess(ctx context.Context, req Request, now time.Time, result *Result) error {
	last := req.User.LastLoginTimestamp
	if last == nil || wholeDays(*last, now) < g.cfg.UserAccessDays {
		return nil
	}
	msg := i18n.Sprintf(req.Locale, i18n.KeyLastAccess, last.Format(dateLayout))
	_, err := g.create(ctx, req.User.ID, msg, now, enums.NotificationKindLastAccess, result)
	return err
}

func (g *Generator) staleEntities(ctx context.Context, req Request, now time.Time, agents []models.Agent, spaces []models.Space, result *Result) error {
	var errs error
	for _, agent := range agents {
		if !agent.Status.IsPublic() || agent.SentNotification != nil {
			continue
		}
		last := agent.LastUpdate()
		if wholeDays(last, now) < g.cfg.EntitiesUpdateDays {
			continue
		}
		msg := i18n.Sprintf(req.Locale, i18n.KeyAgentStale, agent.Name, last.Format(dateLayout),
			entities.EditURL(g.baseURL, enums.EntityKindAgent, agent.ID))
		errs = multierr.Append(errs, g.createStale(ctx, req.User.ID, enums.EntityKindAgent, agent.ID, msg, now, enums.NotificationKindStaleAgent, result))
	}
	for _, space := range spaces {
		if !space.Status.IsPublic() || space.SentNotification != nil {
			continue
		}
		last := space.LastUpdate()
		if wholeDays(last, now) < g.cfg.EntitiesUpdateDays {
			continue
		}
		msg := i18n.Sprintf(req.Locale, i18n.KeySpaceStale, space.Name, last.Format(dateLayout),
			entities.EditURL(g.baseURL, enums.EntityKindSpace, space.ID))
		errs = multierr.Append(errs, g.createStale(ctx, req.User.ID, enums.EntityKindSpace, space.ID, msg, now, enums.NotificationKindStaleSpace, result))
	}
	return errs
}

// createStale records the notification and stores its id on the entity so
// the reminder is sent once until the entity is edited again.
func (g *Generator) createStale(ctx context.Context, userID int64, kind enums.EntityKind, id int64, msg string, now time.Time, nkind enums.NotificationKind, result *Result) error {
	notification, err := g.create(ctx, userID, msg, now, nkind, result)
	if err != nil {
		return err
	}
	if err := g.entities.MarkSentNotification(ctx, kind, id, notification.ID); err != nil {
		return fmt.Errorf("mark %s %d notified: %w", kind, id, err)
	}
	return nil
}

type sealMessages struct {
	expired, toExpire string
	kind              enums.EntityKind
}

var (
	agentSealMessages = sealMessages{expired: i18n.KeyAgentSealExpired, toExpire: i18n.KeyAgentSealToExpire, kind: enums.EntityKindAgent}
	spaceSealMessages = sealMessages{expired: i18n.KeySpaceSealExpired, toExpire: i18n.KeySpaceSealToExpire, kind: enums.EntityKindSpace}
)

func (g *Generator) sealExpiry(ctx context.Context, req Request, now time.Time, agents []models.Agent, spaces []models.Space, result *Result) error {
	var errs error
	for _, agent := range agents {
		errs = multierr.Append(errs, g.sealRelations(ctx, req, now, agentSealMessages, agent.ID, agent.Name, agent.SealRelations, result))
	}
	for _, space := range spaces {
		errs = multierr.Append(errs, g.sealRelations(ctx, req, now, spaceSealMessages, space.ID, space.Name, space.SealRelations, result))
	}
	return errs
}

func (g *Generator) sealRelations(ctx context.Context, req Request, now time.Time, msgs sealMessages, id int64, name string, relations []models.SealRelation, result *Result) error {
	editURL := entities.EditURL(g.baseURL, msgs.kind, id)
	var errs error
	for _, relation := range relations {
		if relation.ValidateDate == nil {
			continue
		}
		sealName := ""
		if relation.Seal != nil {
			sealName = relation.Seal.Name
		}

		diff := relation.ValidateDate.Sub(now).Seconds() / 86400
		var msg string
		switch {
		case diff <= 0:
			msg = i18n.Sprintf(req.Locale, msgs.expired, name, sealName, editURL)
		case diff <= float64(g.cfg.SealToExpireDays):
			days := max(int(math.Round(diff)), 1)
			msg = i18n.Sprintf(req.Locale, msgs.toExpire, name, sealName, days, editURL)
		default:
			continue
		}
		_, err := g.create(ctx, req.User.ID, msg, now, sealKind(diff), result)
		errs = multierr.Append(errs, err)
	}
	return errs
}

func sealKind(diff float64) enums.NotificationKind {
	if diff <= 0 {
		return enums.NotificationKindSealExpired
	}
	return enums.NotificationKindSealExpires
}

func (g *Generator) create(ctx context.Context, userID int64, msg string, now time.Time, kind enums.NotificationKind, result *Result) (*models.Notification, error) {
	notification := &models.Notification{
		UserID:          userID,
		Message:         msg,
		Status:          enums.NotificationStatusUnread,
		CreateTimestamp: now.UTC(),
	}
	if err := g.repo.Create(ctx, notification); err != nil {
		if g.logg != nil {
			g.logg.Error(g.logg.WithField(ctx, "kind", string(kind)), "failed to create notification", err)
		}
		return nil, fmt.Errorf("create %s notification: %w", kind, err)
	}
	result.Created++
	g.metrics.IncGenerated(string(kind))
	return notification, nil
}
