package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// ticketSelectFields aliases ticket_id to id for struct mapping.
const ticketSelectFields = `ticket_id as id, user_id, user_name, user_email, type, message, status, created_at`

// TicketStore implements interfaces.TicketStore using SurrealDB.
type TicketStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewTicketStore(db *surrealdb.DB, logger *common.Logger) *TicketStore {
	return &TicketStore{db: db, logger: logger}
}

func (s *TicketStore) Create(ctx context.Context, ticket *models.SupportTicket) error {
	if ticket.ID == "" {
		ticket.ID = fmt.Sprintf("tk_%s", uuid.New().String()[:8])
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	if ticket.Status == "" {
		ticket.Status = models.TicketStatusOpen
	}

	sql := `UPSERT $rid SET
		ticket_id = $ticket_id, user_id = $user_id, user_name = $user_name,
		user_email = $user_email, type = $type, message = $message,
		status = $status, created_at = $created_at`
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID("ticket", ticket.ID),
		"ticket_id":  ticket.ID,
		"user_id":    ticket.UserID,
		"user_name":  ticket.UserName,
		"user_email": ticket.UserEmail,
		"type":       ticket.Type,
		"message":    ticket.Message,
		"status":     ticket.Status,
		"created_at": ticket.CreatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (s *TicketStore) Get(ctx context.Context, id string) (*models.SupportTicket, error) {
	sql := "SELECT " + ticketSelectFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("ticket", id)}

	results, err := surrealdb.Query[[]models.SupportTicket](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

func (s *TicketStore) List(ctx context.Context, opts interfaces.TicketListOptions) ([]*models.SupportTicket, int, error) {
	where := ""
	vars := map[string]any{}

	if opts.UserID != "" {
		where += " AND user_id = $user_id"
		vars["user_id"] = opts.UserID
	}
	if opts.Status != "" {
		where += " AND status = $status"
		vars["status"] = opts.Status
	}
	if opts.Type != "" {
		where += " AND type = $type"
		vars["type"] = opts.Type
	}
	if opts.Since != nil {
		where += " AND created_at >= $since"
		vars["since"] = *opts.Since
	}

	whereClause := ""
	if where != "" {
		whereClause = " WHERE " + where[5:]
	}

	countSQL := "SELECT count() AS cnt FROM ticket" + whereClause + " GROUP ALL"
	type countResult struct {
		Cnt int `json:"cnt"`
	}
	total := 0
	countResults, err := surrealdb.Query[[]countResult](ctx, s.db, countSQL, vars)
	if err == nil && countResults != nil && len(*countResults) > 0 && len((*countResults)[0].Result) > 0 {
		total = (*countResults)[0].Result[0].Cnt
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	offset := (page - 1) * perPage

	// ticket_id as tiebreaker for deterministic ordering when timestamps are equal
	dataSQL := "SELECT " + ticketSelectFields + " FROM ticket" + whereClause +
		" ORDER BY created_at DESC, ticket_id DESC LIMIT $limit START $start"
	vars["limit"] = perPage
	vars["start"] = offset

	results, err := surrealdb.Query[[]models.SupportTicket](ctx, s.db, dataSQL, vars)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}

	items := make([]*models.SupportTicket, 0)
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			items = append(items, &(*results)[0].Result[i])
		}
	}
	return items, total, nil
}

func (s *TicketStore) UpdateStatus(ctx context.Context, id, status string) error {
	sql := "UPDATE $rid SET status = $status"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("ticket", id),
		"status": status,
	}

	if _, err := surrealdb.Query[[]models.SupportTicket](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	return nil
}

func (s *TicketStore) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[models.SupportTicket](ctx, s.db, surrealmodels.NewRecordID("ticket", id))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	return nil
}

// Compile-time check
var _ interfaces.TicketStore = (*TicketStore)(nil)
