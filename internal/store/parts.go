package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Part is one row of the parts table, carrying both the crib bookkeeping
// fields and the AI analysis outcomes written back by the engine.
type Part struct {
	ID                     int64      `json:"id"`
	PartManufacturer       string     `json:"part_manufacturer"`
	ManufacturerPartNumber string     `json:"manufacturer_part_number"`
	PartDescription        string     `json:"part_description"`
	StockingDecision       string     `json:"stocking_decision"`
	Notes                  string     `json:"notes"`
	AIStatus               *string    `json:"ai_status"`
	NotesByAI              *string    `json:"notes_by_ai"`
	AIConfidence           *string    `json:"ai_confidence"`
	RecommendedReplacement *string    `json:"recommended_replacement"`
	ReplacementMfr         *string    `json:"replacement_manufacturer"`
	ReplacementPrice       *float64   `json:"replacement_price"`
	ReplacementCurrency    *string    `json:"replacement_currency"`
	ReplacementSourceType  *string    `json:"replacement_source_type"`
	ReplacementSourceURL   *string    `json:"replacement_source_url"`
	ReplacementNotes       *string    `json:"replacement_notes"`
	ReplacementConfidence  *string    `json:"replacement_confidence"`
	CreatedAt              *time.Time `json:"created_at"`
	UpdatedAt              *time.Time `json:"updated_at"`
}

// Machine is one row of the machines table plus its part count.
type Machine struct {
	ID                  int64  `json:"id"`
	EquipmentID         string `json:"equipment_id"`
	EquipmentAlias      string `json:"equipment_alias"`
	MachineDescription  string `json:"machine_description"`
	Plant               string `json:"plant"`
	GroupResponsibility string `json:"group_responsibility"`
	PartsCount          int    `json:"parts_count"`
}

// PartFilter narrows ListParts. Zero values mean no filter.
type PartFilter struct {
	AIStatus  string
	MachineID int64
	Search    string
	Limit     int
	Offset    int
}

const partColumns = `p.id, p.part_manufacturer, p.manufacturer_part_number, p.part_description,
	coalesce(p.stocking_decision, ''), coalesce(p.notes, ''),
	p.ai_status, p.notes_by_ai, p.ai_confidence,
	p.recommended_replacement, p.replacement_manufacturer, p.replacement_price,
	p.replacement_currency, p.replacement_source_type, p.replacement_source_url,
	p.replacement_notes, p.replacement_confidence,
	p.created_at, p.updated_at`

// ListParts returns matching parts plus the total match count before paging.
func (s *Store) ListParts(ctx context.Context, f PartFilter) ([]Part, int, error) {
	var (
		conds []string
		args  []any
		join  string
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.AIStatus != "" {
		conds = append(conds, "p.ai_status = "+arg(f.AIStatus))
	}
	if f.MachineID > 0 {
		join = " JOIN machine_parts mp ON mp.part_id = p.id"
		conds = append(conds, "mp.machine_id = "+arg(f.MachineID))
	}
	if f.Search != "" {
		term := "%" + f.Search + "%"
		p := arg(term)
		conds = append(conds, fmt.Sprintf(
			"(p.part_manufacturer ILIKE %[1]s OR p.manufacturer_part_number ILIKE %[1]s OR p.part_description ILIKE %[1]s OR p.notes ILIKE %[1]s OR p.notes_by_ai ILIKE %[1]s)", p))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countSQL := "SELECT count(DISTINCT p.id) FROM parts p" + join + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count parts: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 1000
	}
	listSQL := "SELECT DISTINCT " + partColumns + " FROM parts p" + join + where +
		" ORDER BY p.id LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := s.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		var p Part
		if err := rows.Scan(
			&p.ID, &p.PartManufacturer, &p.ManufacturerPartNumber, &p.PartDescription,
			&p.StockingDecision, &p.Notes,
			&p.AIStatus, &p.NotesByAI, &p.AIConfidence,
			&p.RecommendedReplacement, &p.ReplacementMfr, &p.ReplacementPrice,
			&p.ReplacementCurrency, &p.ReplacementSourceType, &p.ReplacementSourceURL,
			&p.ReplacementNotes, &p.ReplacementConfidence,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, total, rows.Err()
}

// ListMachines returns all machines with their associated part counts.
func (s *Store) ListMachines(ctx context.Context) ([]Machine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.equipment_id, coalesce(m.equipment_alias, ''),
		       coalesce(m.machine_description, ''), coalesce(m.plant, ''),
		       coalesce(m.group_responsibility, ''),
		       (SELECT count(*) FROM machine_parts mp WHERE mp.machine_id = m.id)
		FROM machines m
		ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer rows.Close()

	var machines []Machine
	for rows.Next() {
		var m Machine
		if err := rows.Scan(&m.ID, &m.EquipmentID, &m.EquipmentAlias,
			&m.MachineDescription, &m.Plant, &m.GroupResponsibility, &m.PartsCount); err != nil {
			return nil, fmt.Errorf("scan machine: %w", err)
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}
