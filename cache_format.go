package jus

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"time"
)

// EncodeEntry serializes an entry to the stable on-disk wire format used by
// DiskCache, for cache backends that store opaque byte blobs (badgerstore,
// diskvstore, leveldbstore, memcachestore, redisstore).
func EncodeEntry(key string, entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeEntry(&buf, key, entry); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeEntry parses bytes produced by EncodeEntry.
func DecodeEntry(data []byte) (key string, entry *Entry, err error) {
	return readEntry(bytes.NewReader(data))
}

// cacheMagic identifies a well-formed on-disk cache entry file. Any file
// that doesn't start with this value, or that fails its trailing CRC
// check, is treated as corrupt and deleted on read.
const cacheMagic uint32 = 0x20150306

// writeEntry serializes key and entry to w using the stable on-disk
// format: magic, length-prefixed key/etag strings, little-endian epoch-
// millisecond timestamps, a length-prefixed header map, a CRC-32 of the
// body, then the raw body bytes.
func writeEntry(w io.Writer, key string, entry *Entry) error {
	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, cacheMagic); err != nil {
		return err
	}
	if err := writeString(bw, key); err != nil {
		return err
	}
	if err := writeString(bw, entry.ETag); err != nil {
		return err
	}
	for _, t := range []time.Time{entry.ServerDate, entry.LastModified, entry.TTL, entry.SoftTTL} {
		if err := binary.Write(bw, binary.LittleEndian, epochMillis(t)); err != nil {
			return err
		}
	}

	headers := entry.ResponseHeaders
	if err := binary.Write(bw, binary.LittleEndian, uint32(headerPairCount(headers))); err != nil {
		return err
	}
	for name, values := range headers {
		for _, v := range values {
			if err := writeString(bw, name); err != nil {
				return err
			}
			if err := writeString(bw, v); err != nil {
				return err
			}
		}
	}

	crc := crc32.ChecksumIEEE(entry.Data)
	if err := binary.Write(bw, binary.LittleEndian, crc); err != nil {
		return err
	}
	if _, err := bw.Write(entry.Data); err != nil {
		return err
	}
	return bw.Flush()
}

// readEntry parses a file written by writeEntry. It returns an error for
// any structural problem (bad magic, truncated read, CRC mismatch); the
// caller is responsible for deleting the offending file.
func readEntry(r io.Reader) (key string, entry *Entry, err error) {
	br := bufio.NewReader(r)

	var magic uint32
	if err = binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return "", nil, err
	}
	if magic != cacheMagic {
		return "", nil, fmt.Errorf("jus: bad cache file magic %#x", magic)
	}

	if key, err = readString(br); err != nil {
		return "", nil, err
	}
	etag, err := readString(br)
	if err != nil {
		return "", nil, err
	}

	var serverDateMs, lastModifiedMs, ttlMs, softTTLMs int64
	for _, dst := range []*int64{&serverDateMs, &lastModifiedMs, &ttlMs, &softTTLMs} {
		if err = binary.Read(br, binary.LittleEndian, dst); err != nil {
			return "", nil, err
		}
	}

	var headerCount uint32
	if err = binary.Read(br, binary.LittleEndian, &headerCount); err != nil {
		return "", nil, err
	}
	headers := make(http.Header, headerCount)
	for i := uint32(0); i < headerCount; i++ {
		name, err2 := readString(br)
		if err2 != nil {
			return "", nil, err2
		}
		value, err2 := readString(br)
		if err2 != nil {
			return "", nil, err2
		}
		headers.Add(name, value)
	}

	var wantCRC uint32
	if err = binary.Read(br, binary.LittleEndian, &wantCRC); err != nil {
		return "", nil, err
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return "", nil, err
	}
	if got := crc32.ChecksumIEEE(body); got != wantCRC {
		return "", nil, fmt.Errorf("jus: cache file CRC mismatch for key %q", key)
	}

	entry = &Entry{
		Data:            body,
		ETag:            etag,
		ServerDate:      fromEpochMillis(serverDateMs),
		LastModified:    fromEpochMillis(lastModifiedMs),
		TTL:             fromEpochMillis(ttlMs),
		SoftTTL:         fromEpochMillis(softTTLMs),
		ResponseHeaders: headers,
	}
	return key, entry, nil
}

func headerPairCount(h http.Header) int {
	n := 0
	for _, values := range h {
		n += len(values)
	}
	return n
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func epochMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromEpochMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
