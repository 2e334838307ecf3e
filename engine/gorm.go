package engine

import (
	"context"
	"encoding/json"

	"golang.org/x/xerrors"
	"gorm.io/gorm"

	"github.com/rqzrqh/paychan/model"
)

// columns lifted out of the body so that the common lookups hit an index
var indexedColumns = []struct {
	field  string
	column string
}{
	{"kind", "kind"},
	{"channelId", "channel_id"},
	{"token", "token"},
}

type GormEngine struct {
	db *gorm.DB
}

func NewGormEngine(db *gorm.DB) *GormEngine {
	return &GormEngine{db: db}
}

func (e *GormEngine) Migrate() error {
	return e.db.AutoMigrate(&model.Document{})
}

func stringField(doc map[string]interface{}, field string) string {
	if s, ok := doc[field].(string); ok {
		return s
	}
	return ""
}

func toRow(doc Document) (*model.Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return &model.Document{
		Kind:      stringField(doc, "kind"),
		ChannelID: stringField(doc, "channelId"),
		Token:     stringField(doc, "token"),
		Body:      string(raw),
	}, nil
}

func (e *GormEngine) Insert(ctx context.Context, doc Document) error {
	norm, err := Encode(doc)
	if err != nil {
		return err
	}
	row, err := toRow(norm)
	if err != nil {
		return xerrors.Errorf("insert: %w", err)
	}
	if err := e.db.WithContext(ctx).Create(row).Error; err != nil {
		log.Errorw("Insert", "err", err, "kind", row.Kind)
		return err
	}
	return nil
}

func (e *GormEngine) find(tx *gorm.DB, q Query) ([]model.Document, error) {
	norm, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}

	stmt := tx.Model(&model.Document{})
	for _, ic := range indexedColumns {
		if v, ok := norm[ic.field].(string); ok {
			stmt = stmt.Where(ic.column+" = ?", v)
		}
	}

	var rows []model.Document
	if err := stmt.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := rows[:0]
	for _, row := range rows {
		if matches([]byte(row.Body), norm) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (e *GormEngine) Find(ctx context.Context, q Query) ([]Document, error) {
	rows, err := e.find(e.db.WithContext(ctx), q)
	if err != nil {
		log.Errorw("Find", "err", err)
		return nil, err
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeBody([]byte(row.Body))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (e *GormEngine) FindOne(ctx context.Context, q Query) (Document, error) {
	docs, err := e.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

func (e *GormEngine) Update(ctx context.Context, q Query, set Document) (int, error) {
	count := 0
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := e.find(tx, q)
		if err != nil {
			return err
		}

		for _, row := range rows {
			raw, doc, err := applySet([]byte(row.Body), set)
			if err != nil {
				return err
			}
			if err := tx.Model(&model.Document{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
				"kind":       stringField(doc, "kind"),
				"channel_id": stringField(doc, "channelId"),
				"token":      stringField(doc, "token"),
				"body":       string(raw),
			}).Error; err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		log.Errorw("Update", "err", err)
		return 0, err
	}
	return count, nil
}

func (e *GormEngine) Close() error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
