package engageservice

import (
	"context"
)

func (m *EngageModel) insertReport(ctx context.Context, report *Report) error {
	query := `
		INSERT INTO reports (post_id, reporter_id, reason)
		VALUES ($1, $2, $3)
		RETURNING id, status, created_at`

	err := m.db.QueryRowContext(ctx, query, report.PostID, report.ReporterID, report.Reason).Scan(&report.ID, &report.Status, &report.CreatedAt)
	if err != nil {
		switch {
		case foreignKeyViolation(err):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *EngageModel) getOpenReports(ctx context.Context, limit, offset int) ([]Report, error) {
	query := `
		SELECT id, post_id, reporter_id, reason, status, created_at
		FROM reports
		WHERE status = 'open'
		ORDER BY created_at
		LIMIT $1 OFFSET $2`

	rows, err := m.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		err := rows.Scan(&r.ID, &r.PostID, &r.ReporterID, &r.Reason, &r.Status, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	return reports, rows.Err()
}
