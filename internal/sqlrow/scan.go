package sqlrow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Limetric/simschema/internal/simtypes"
)

// UUID scans identifiers stored as text or as SQL Server uniqueidentifier
// bytes.
type UUID struct{ uuid.UUID }

func (u *UUID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		u.UUID = uuid.Nil
		return nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return fmt.Errorf("scan uuid: %w", err)
		}
		u.UUID = id
		return nil
	case []byte:
		if len(v) == 16 {
			// uniqueidentifier stores the first three groups little-endian.
			var b [16]byte
			copy(b[:], v)
			b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
			b[4], b[5] = b[5], b[4]
			b[6], b[7] = b[7], b[6]
			u.UUID = uuid.UUID(b)
			return nil
		}
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("scan uuid: %w", err)
		}
		u.UUID = id
		return nil
	}
	return fmt.Errorf("scan uuid: unsupported source %T", src)
}

// Date scans Unix seconds into a simtypes.Date.
type Date struct{ simtypes.Date }

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Date = simtypes.Date{}
	case int64:
		d.Date = simtypes.DateFromUnix(v)
	case []byte:
		var sec int64
		if _, err := fmt.Sscan(string(v), &sec); err != nil {
			return fmt.Errorf("scan date: %w", err)
		}
		d.Date = simtypes.DateFromUnix(sec)
	default:
		return fmt.Errorf("scan date: unsupported source %T", src)
	}
	return nil
}
