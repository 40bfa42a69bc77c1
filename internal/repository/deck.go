package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rhysticwizard/cardsite-v4-sub001/internal/entity"
)

var ErrDeckNotFound = errors.New("deck not found")

type DeckRepository interface {
	Save(ctx context.Context, deck *entity.Deck) error
	GetByID(ctx context.Context, id string) (*entity.Deck, error)
}

type dbDeck struct {
	conn *sql.DB
}

func NewDeckRepository(conn *sql.DB) DeckRepository {
	return &dbDeck{
		conn: conn,
	}
}

func (that *dbDeck) Save(ctx context.Context, deck *entity.Deck) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.ExecContext(ctx,
		`INSERT INTO decks (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		deck.ID, deck.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert deck: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM deck_cards WHERE deck_id = ?`, deck.ID)
	if err != nil {
		return fmt.Errorf("failed to clear deck cards: %w", err)
	}

	for _, entry := range deck.Entries {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO deck_cards (deck_id, name, image_url, mana_cost, power, toughness, double_faced, quantity)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			deck.ID, entry.Card.Name, entry.Card.ImageURL, entry.Card.ManaCost,
			entry.Card.Power, entry.Card.Toughness, entry.Card.DoubleFaced, entry.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert deck card: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deck: %w", err)
	}

	return nil
}

func (that *dbDeck) GetByID(ctx context.Context, id string) (*entity.Deck, error) {
	deck := &entity.Deck{ID: id}

	err := that.conn.QueryRowContext(ctx, `SELECT name FROM decks WHERE id = ?`, id).Scan(&deck.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeckNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}

	rows, err := that.conn.QueryContext(ctx,
		`SELECT name, image_url, mana_cost, power, toughness, double_faced, quantity
		 FROM deck_cards WHERE deck_id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get deck cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry entity.DeckEntry
		if err = rows.Scan(
			&entry.Card.Name, &entry.Card.ImageURL, &entry.Card.ManaCost,
			&entry.Card.Power, &entry.Card.Toughness, &entry.Card.DoubleFaced,
			&entry.Quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan deck card: %w", err)
		}

		deck.Entries = append(deck.Entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read deck cards: %w", err)
	}

	return deck, nil
}
