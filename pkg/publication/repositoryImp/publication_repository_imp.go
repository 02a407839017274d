package repositoryImp

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"umbra/entities"
	"umbra/pkg/publication/repository"
	"umbra/pkg/textkit"
)

type pubRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.PublicationRepository { return &pubRepo{db} }

func (r *pubRepo) Create(ctx context.Context, p *entities.Publication) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return repository.ErrDuplicate
	}
	return err
}

func (r *pubRepo) Update(ctx context.Context, p *entities.Publication) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (r *pubRepo) FindByID(ctx context.Context, id uint) (*entities.Publication, error) {
	var p entities.Publication
	if err := r.db.WithContext(ctx).First(&p, "publication_id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *pubRepo) FindBySourceURL(ctx context.Context, url string) (*entities.Publication, error) {
	var p entities.Publication
	if err := r.db.WithContext(ctx).Where("source_url = ?", url).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *pubRepo) FindByIDs(ctx context.Context, ids []uint) (map[uint]entities.Publication, error) {
	if len(ids) == 0 {
		return map[uint]entities.Publication{}, nil
	}
	var ps []entities.Publication
	if err := r.db.WithContext(ctx).Where("publication_id IN ?", ids).Find(&ps).Error; err != nil {
		return nil, err
	}
	m := make(map[uint]entities.Publication, len(ps))
	for i := range ps {
		m[ps[i].PublicationID] = ps[i]
	}
	return m, nil
}

func (r *pubRepo) List(ctx context.Context, f repository.ListFilter) ([]entities.Publication, int64, error) {
	f = f.Normalize()
	q := r.db.WithContext(ctx).Model(&entities.Publication{})
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + textkit.EscapeLike(strings.ToLower(s)) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(abstract) LIKE ? ESCAPE '\')`, like, like)
	}
	q = anyJSON(q, "organisms", f.Organisms)
	q = anyJSON(q, "space_environments", f.Environments)
	if f.Status != "" {
		q = q.Where("processing_status = ?", f.Status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ps []entities.Publication
	err := q.Order("created_at DESC, publication_id DESC").
		Limit(f.PageSize).Offset((f.Page - 1) * f.PageSize).
		Find(&ps).Error
	return ps, total, err
}

// anyJSON matches rows whose JSON string array column contains any of values.
func anyJSON(q *gorm.DB, column string, values []string) *gorm.DB {
	conds := []string{}
	args := []any{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		conds = append(conds, "LOWER("+column+") LIKE ? ESCAPE '\\'")
		args = append(args, `%"`+textkit.EscapeLike(strings.ToLower(v))+`"%`)
	}
	if len(conds) == 0 {
		return q
	}
	return q.Where("("+strings.Join(conds, " OR ")+")", args...)
}

func (r *pubRepo) ListByStatus(ctx context.Context, status string) ([]entities.Publication, error) {
	var ps []entities.Publication
	return ps, r.db.WithContext(ctx).Where("processing_status = ?", status).Order("publication_id").Find(&ps).Error
}

func (r *pubRepo) ListAll(ctx context.Context) ([]entities.Publication, error) {
	var ps []entities.Publication
	return ps, r.db.WithContext(ctx).Omit("full_text").Order("publication_id").Find(&ps).Error
}

func (r *pubRepo) UpdateStatus(ctx context.Context, id uint, status, lastErr string) error {
	updates := map[string]any{"processing_status": status, "last_error": lastErr}
	if status == entities.StatusCompleted || status == entities.StatusFailed {
		updates["last_processed"] = time.Now()
	}
	return r.updates(ctx, id, updates)
}

func (r *pubRepo) UpdateExtracted(ctx context.Context, id uint, e entities.ExtractedEntities) error {
	// column-map updates skip the json serializer, so go through the struct
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p entities.Publication
		if err := tx.First(&p, "publication_id = ?", id).Error; err != nil {
			return notFound(err)
		}
		now := time.Now()
		p.Organisms = e.Organisms
		p.ExperimentalConditions = e.ExperimentalConditions
		p.BiologicalProcesses = e.BiologicalProcesses
		p.SpaceEnvironments = e.SpaceEnvironments
		p.ProcessingStatus = entities.StatusCompleted
		p.LastProcessed = &now
		p.LastError = ""
		return tx.Omit(clause.Associations).Save(&p).Error
	})
}

func (r *pubRepo) UpdateSummary(ctx context.Context, id uint, summary string) error {
	return r.updates(ctx, id, map[string]any{"summary": summary})
}

func (r *pubRepo) IncrementViews(ctx context.Context, id uint) error {
	return r.updates(ctx, id, map[string]any{"view_count": gorm.Expr("view_count + 1")})
}

func (r *pubRepo) PublicationDates(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := map[uint]string{}
	if len(ids) == 0 {
		return out, nil
	}
	type row struct {
		PublicationID   uint
		PublicationDate string
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&entities.Publication{}).
		Select("publication_id, publication_date").
		Where("publication_id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, rw := range rows {
		out[rw.PublicationID] = rw.PublicationDate
	}
	return out, nil
}

func (r *pubRepo) updates(ctx context.Context, id uint, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&entities.Publication{}).Where("publication_id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}
