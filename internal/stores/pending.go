package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingRecordVersion1 = 1

	maxFieldLen = 512
)

var (
	// ErrPendingSessionNotFound reports that no challenge is stored.
	ErrPendingSessionNotFound = errors.New("pending session not found")
	// ErrPendingSessionExpired reports a challenge past its own expiry.
	ErrPendingSessionExpired = errors.New("pending session expired")
	// ErrPendingSessionBackend wraps transport-level store failures.
	ErrPendingSessionBackend = errors.New("pending session backend unavailable")
	// ErrPendingSessionCorrupt reports an undecodable stored record.
	ErrPendingSessionCorrupt = errors.New("pending session record corrupt")
)

// PendingSessionRecord is the persisted two-factor challenge flag.
type PendingSessionRecord struct {
	ID           string
	Email        string
	PendingSince int64
	ExpiresAt    int64
}

// PendingSessionStore persists one record per client context in Redis.
type PendingSessionStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewPendingSessionStore creates a store with the given key prefix
// (default "sgp"). now defaults to time.Now.
func NewPendingSessionStore(redisClient redis.UniversalClient, prefix string, now func() time.Time) *PendingSessionStore {
	if prefix == "" {
		prefix = "sgp"
	}
	if now == nil {
		now = time.Now
	}
	return &PendingSessionStore{
		redis:  redisClient,
		prefix: prefix,
		now:    now,
	}
}

func (s *PendingSessionStore) key(clientID string) string {
	return s.prefix + ":" + clientID
}

// Save writes the record, replacing any previous challenge for the
// client context.
func (s *PendingSessionStore) Save(ctx context.Context, clientID string, record *PendingSessionRecord, ttl time.Duration) error {
	encoded, err := encodePendingSession(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(clientID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPendingSessionBackend, err)
	}
	return nil
}

// Get loads the record for the client context. A record past its own
// ExpiresAt is deleted best-effort and reported as expired.
func (s *PendingSessionStore) Get(ctx context.Context, clientID string) (*PendingSessionRecord, error) {
	data, err := s.redis.Get(ctx, s.key(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPendingSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPendingSessionBackend, err)
	}

	record, err := decodePendingSession(data)
	if err != nil {
		return nil, err
	}

	if record.ExpiresAt > 0 && record.ExpiresAt <= s.now().Unix() {
		_, _ = s.Clear(ctx, clientID)
		return nil, ErrPendingSessionExpired
	}

	return record, nil
}

// Clear deletes the record. The bool reports whether a record existed;
// clearing an absent record is not an error.
func (s *PendingSessionStore) Clear(ctx context.Context, clientID string) (bool, error) {
	deleted, err := s.redis.Del(ctx, s.key(clientID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPendingSessionBackend, err)
	}
	return deleted > 0, nil
}

func encodePendingSession(record *PendingSessionRecord) ([]byte, error) {
	if record == nil {
		return nil, ErrPendingSessionCorrupt
	}

	var buf bytes.Buffer
	buf.WriteByte(pendingRecordVersion1)

	if err := writeLenString(&buf, record.ID); err != nil {
		return nil, err
	}
	if err := writeLenString(&buf, record.Email); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.PendingSince); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPendingSessionCorrupt, err)
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPendingSessionCorrupt, err)
	}

	return buf.Bytes(), nil
}

func decodePendingSession(data []byte) (*PendingSessionRecord, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: missing version", ErrPendingSessionCorrupt)
	}
	if version != pendingRecordVersion1 {
		return nil, fmt.Errorf("%w: unknown version %d", ErrPendingSessionCorrupt, version)
	}

	record := &PendingSessionRecord{}
	if record.ID, err = readLenString(r); err != nil {
		return nil, err
	}
	if record.Email, err = readLenString(r); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &record.PendingSince); err != nil {
		return nil, fmt.Errorf("%w: truncated pending-since", ErrPendingSessionCorrupt)
	}
	if err := binary.Read(r, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: truncated expires-at", ErrPendingSessionCorrupt)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", ErrPendingSessionCorrupt)
	}

	return record, nil
}

func writeLenString(buf *bytes.Buffer, s string) error {
	if len(s) > maxFieldLen {
		return fmt.Errorf("%w: field too long", ErrPendingSessionCorrupt)
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return fmt.Errorf("%w: %v", ErrPendingSessionCorrupt, err)
	}
	buf.WriteString(s)
	return nil
}

func readLenString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", fmt.Errorf("%w: truncated length", ErrPendingSessionCorrupt)
	}
	if int(n) > maxFieldLen || int(n) > r.Len() {
		return "", fmt.Errorf("%w: invalid field length", ErrPendingSessionCorrupt)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", fmt.Errorf("%w: truncated field", ErrPendingSessionCorrupt)
	}
	return string(raw), nil
}
