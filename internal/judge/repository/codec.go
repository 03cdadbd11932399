package repository

import (
	"encoding/binary"
	"sync"
	"time"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"

	"github.com/klauspost/compress/zstd"
)

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func initCodec() error {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	if codecErr != nil {
		return appErr.Wrapf(codecErr, appErr.StoreError, "init zstd codec failed")
	}
	return nil
}

func compressCode(code string) ([]byte, error) {
	if code == "" {
		return nil, nil
	}
	if err := initCodec(); err != nil {
		return nil, err
	}
	return encoder.EncodeAll([]byte(code), nil), nil
}

func decompressCode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if err := initCodec(); err != nil {
		return "", err
	}
	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.StoreError, "decode stored code failed")
	}
	return string(out), nil
}

// indexKey orders index entries by time; the id suffix keeps keys unique.
func indexKey(t time.Time, id string) []byte {
	key := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(key, uint64(t.UnixNano()))
	copy(key[8:], id)
	return key
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func isoLocal(t time.Time) string {
	return t.Local().Format("2006-01-02T15:04:05.000000")
}
