package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

// Snapshot — сохраняемое состояние корзины.
//
// Seq — старший выданный в сессии id позиции. Он переживает удаление
// позиций, поэтому id не повторяются между запросами.
type Snapshot struct {
	Seq   int64
	Lines []domain.CartLine
}

type snapshotEnvelope struct {
	Seq   int64              `json:"seq"`
	Lines *[]json.RawMessage `json:"lines"`
}

// EncodeSnapshot сериализует снимок в {"seq":N,"lines":[...]}.
// Пустая корзина сохраняется с "lines":[].
func EncodeSnapshot(snap Snapshot) (string, error) {
	lines := snap.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	raw, err := json.Marshal(struct {
		Seq   int64             `json:"seq"`
		Lines []domain.CartLine `json:"lines"`
	}{Seq: snap.Seq, Lines: lines})
	if err != nil {
		return "", fmt.Errorf("encode cart snapshot: %w", err)
	}
	return string(raw), nil
}

// storedLine допускает отсутствующие поля старых снимков.
type storedLine struct {
	ID       *int64           `json:"id"`
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Image    string           `json:"image"`
	Quantity *int             `json:"quantity"`
}

// DecodeSnapshot разбирает снимок корзины.
//
// Принимается и конверт {"seq":N,"lines":[...]}, и старый голый JSON-массив
// позиций (тогда Seq = 0). ErrSnapshotCorrupt возвращается, только если
// документ целиком не разбирается. Отдельные битые позиции отбрасываются и
// учитываются в dropped.
func DecodeSnapshot(payload string) (snap Snapshot, dropped int, err error) {
	if payload == "" {
		return Snapshot{}, 0, nil
	}

	items, seq, err := splitSnapshot([]byte(payload))
	if err != nil {
		return Snapshot{}, 0, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupt, err)
	}
	if seq > 0 {
		snap.Seq = seq
	}

	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		var stored storedLine
		if err := json.Unmarshal(item, &stored); err != nil {
			dropped++
			continue
		}
		line, ok := normalize(stored)
		if !ok {
			dropped++
			continue
		}
		if _, dup := seen[line.ID]; dup {
			dropped++
			continue
		}
		seen[line.ID] = struct{}{}
		snap.Lines = append(snap.Lines, line)
	}
	return snap, dropped, nil
}

func splitSnapshot(payload []byte) ([]json.RawMessage, int64, error) {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, 0, err
		}
		return items, 0, nil
	}

	var envelope snapshotEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, 0, err
	}
	if envelope.Lines == nil {
		return nil, 0, fmt.Errorf("snapshot has no lines")
	}
	return *envelope.Lines, envelope.Seq, nil
}

func normalize(stored storedLine) (domain.CartLine, bool) {
	if stored.ID == nil || *stored.ID <= 0 {
		return domain.CartLine{}, false
	}
	if stored.Price == nil || stored.Price.IsNegative() {
		return domain.CartLine{}, false
	}

	qty := 1
	if stored.Quantity != nil && *stored.Quantity >= 1 {
		qty = *stored.Quantity
	}

	return domain.CartLine{
		ID:          *stored.ID,
		ProductName: stored.Name,
		UnitPrice:   *stored.Price,
		ImageRef:    stored.Image,
		Quantity:    qty,
	}, true
}
