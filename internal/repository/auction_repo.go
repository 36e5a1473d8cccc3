package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/senyabanana/auction-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChronographFields - поля документа, которые разрешено сохранять хронографу.
// Таймер обновляется отдельной колонкой и указывается здесь же.
var ChronographFields = []string{
	"current_stage",
	"finished_stage",
	"timer",
	"chronograph_errors_count",
	"stages",
	"initial_bids",
	"results",
	"bids", // для публикации поданных ставок
	"_audit_document_posted",
	"_auction_results_sent",
}

// AuctionRepository - интерфейс для работы с аукционами.
type AuctionRepository interface {
	InsertAuction(ctx context.Context, auction *models.Auction) error
	GetAuction(ctx context.Context, auctionID string) (*models.Auction, error)
	ListAuctions(ctx context.Context, page int) ([]models.AuctionListItem, error)
	ClaimDueAuction(ctx context.Context, now time.Time) (*models.Auction, error)
	PostBidStage(ctx context.Context, auctionID, bidID string, stageIndex int, value *models.PostedBid) (*models.Auction, error)
	SaveAuction(ctx context.Context, auction *models.Auction, fields []string, touchModified bool) error
}

// PostgresAuctionRepository - реализация AuctionRepository для базы данных.
// Документ аукциона лежит в jsonb-колонке data, таймер продублирован
// отдельной колонкой для атомарного захвата.
type PostgresAuctionRepository struct {
	DB             *pgxpool.Pool
	ProcessingLock time.Duration
}

// NewPostgresAuctionRepository создает новый экземпляр PostgresAuctionRepository.
func NewPostgresAuctionRepository(db *pgxpool.Pool, processingLock time.Duration) *PostgresAuctionRepository {
	return &PostgresAuctionRepository{DB: db, ProcessingLock: processingLock}
}

// InsertAuction вставляет или полностью заменяет документ аукциона.
func (r *PostgresAuctionRepository) InsertAuction(ctx context.Context, auction *models.Auction) error {
	data, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("marshal auction: %w", err)
	}
	insertQuery := `
		INSERT INTO auctions (id, tender_id, lot_id, start_at, timer, modified, data)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, now(), $6)
		ON CONFLICT (id) DO UPDATE
		SET tender_id = EXCLUDED.tender_id,
		    lot_id = EXCLUDED.lot_id,
		    start_at = EXCLUDED.start_at,
		    timer = EXCLUDED.timer,
		    modified = now(),
		    data = EXCLUDED.data`
	_, err = r.DB.Exec(ctx, insertQuery,
		auction.ID, auction.TenderID, auction.LotID, auction.StartAt, auction.Timer, data)
	return err
}

// GetAuction возвращает документ аукциона по идентификатору.
func (r *PostgresAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*models.Auction, error) {
	query := `SELECT timer, modified, data FROM auctions WHERE id = $1`
	row := r.DB.QueryRow(ctx, query, auctionID)
	auction, err := scanAuction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return auction, err
}

// ListAuctions возвращает страницу публичного списка аукционов.
func (r *PostgresAuctionRepository) ListAuctions(ctx context.Context, page int) ([]models.AuctionListItem, error) {
	const pageSize = 10
	if page < 0 {
		page = 0
	}
	query := `
		SELECT id, start_at,
		       data->>'title', data->>'title_en',
		       data->>'procurementMethodType', data->>'tenderID'
		FROM auctions
		ORDER BY start_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.DB.Query(ctx, query, pageSize, page*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []models.AuctionListItem
	for rows.Next() {
		var item models.AuctionListItem
		var title, titleEn, method, slug *string
		if err := rows.Scan(&item.ID, &item.StartAt, &title, &titleEn, &method, &slug); err != nil {
			return nil, err
		}
		if title != nil {
			item.Title = *title
		}
		if titleEn != nil {
			item.TitleEn = *titleEn
		}
		if method != nil {
			item.ProcurementMethodType = models.ProcurementMethodType(*method)
		}
		if slug != nil {
			item.TenderSlug = *slug
		}
		auctions = append(auctions, item)
	}
	return auctions, rows.Err()
}

// ClaimDueAuction атомарно захватывает аукцион с ближайшим истекшим таймером,
// продлевая таймер на время блокировки обработки. Гарантирует, что документ
// не достанется другому хронографу до истечения блокировки.
// Возвращает nil, nil если истекших таймеров нет.
func (r *PostgresAuctionRepository) ClaimDueAuction(ctx context.Context, now time.Time) (*models.Auction, error) {
	claimQuery := `
		UPDATE auctions
		SET timer = $2
		WHERE id = (
			SELECT id FROM auctions
			WHERE timer IS NOT NULL AND timer <= $1
			ORDER BY timer
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING timer, modified, data`
	row := r.DB.QueryRow(ctx, claimQuery, now, now.Add(r.ProcessingLock))
	auction, err := scanAuction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return auction, err
}

// PostBidStage атомарно записывает ставку участника в слот раунда.
// Позиционный фильтр по id участника считается внутри запроса, поэтому
// конкурирующие записи разных участников не пересекаются.
// value == nil означает отзыв ставки - слот удаляется.
// Возвращает обновленный документ, чтобы ответ строился без повторного чтения.
func (r *PostgresAuctionRepository) PostBidStage(ctx context.Context, auctionID, bidID string, stageIndex int, value *models.PostedBid) (*models.Auction, error) {
	stageKey := strconv.Itoa(stageIndex)

	var row pgx.Row
	if value == nil {
		deleteQuery := `
			WITH bid AS (
				SELECT ord - 1 AS idx
				FROM auctions, jsonb_array_elements(auctions.data->'bids') WITH ORDINALITY AS b(obj, ord)
				WHERE auctions.id = $1 AND b.obj->>'id' = $2
			)
			UPDATE auctions
			SET data = auctions.data #- ARRAY['bids', bid.idx::text, 'stages', $3],
			    modified = now()
			FROM bid
			WHERE auctions.id = $1
			RETURNING auctions.timer, auctions.modified, auctions.data`
		row = r.DB.QueryRow(ctx, deleteQuery, auctionID, bidID, stageKey)
	} else {
		posted, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal posted bid: %w", err)
		}
		setQuery := `
			WITH bid AS (
				SELECT ord - 1 AS idx
				FROM auctions, jsonb_array_elements(auctions.data->'bids') WITH ORDINALITY AS b(obj, ord)
				WHERE auctions.id = $1 AND b.obj->>'id' = $2
			)
			UPDATE auctions
			SET data = jsonb_set(
			        jsonb_set(
			            auctions.data,
			            ARRAY['bids', bid.idx::text, 'stages'],
			            COALESCE(auctions.data #> ARRAY['bids', bid.idx::text, 'stages'], '{}'::jsonb),
			            true
			        ),
			        ARRAY['bids', bid.idx::text, 'stages', $3],
			        $4::jsonb,
			        true
			    ),
			    modified = now()
			FROM bid
			WHERE auctions.id = $1
			RETURNING auctions.timer, auctions.modified, auctions.data`
		row = r.DB.QueryRow(ctx, setQuery, auctionID, bidID, stageKey, posted)
	}

	auction, err := scanAuction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return auction, err
}

// SaveAuction сохраняет только перечисленные поля документа, никогда весь
// документ целиком. Поле "timer" обновляет одноименную колонку; nil-таймер
// снимает аукцион с автоматической обработки.
func (r *PostgresAuctionRepository) SaveAuction(ctx context.Context, auction *models.Auction, fields []string, touchModified bool) error {
	raw, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("marshal auction: %w", err)
	}
	var doc map[string]json.RawMessage
	if err = json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal auction: %w", err)
	}

	patch := make(map[string]json.RawMessage)
	setTimer := false
	for _, field := range fields {
		if field == "timer" {
			setTimer = true
			continue
		}
		if v, ok := doc[field]; ok {
			patch[field] = v
		}
	}

	patchData, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}

	query := `UPDATE auctions SET data = data || $2::jsonb`
	args := []interface{}{auction.ID, patchData}
	if setTimer {
		query += fmt.Sprintf(", timer = $%d", len(args)+1)
		args = append(args, auction.Timer)
	}
	if touchModified {
		query += ", modified = now()"
	}
	query += " WHERE id = $1"

	tag, err := r.DB.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("auction %s not found", auction.ID)
	}
	return nil
}

// scanAuction читает документ аукциона из строки (timer, modified, data).
func scanAuction(row pgx.Row) (*models.Auction, error) {
	var timer *time.Time
	var modified time.Time
	var data []byte
	if err := row.Scan(&timer, &modified, &data); err != nil {
		return nil, err
	}

	var auction models.Auction
	if err := json.Unmarshal(data, &auction); err != nil {
		return nil, fmt.Errorf("unmarshal auction: %w", err)
	}
	auction.Timer = timer
	auction.Modified = modified
	return &auction, nil
}
