package infrastructure

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
)

// MegaClient speaks the public Mega.nz API directly: it resolves a file
// handle plus key into a temporary download URL, the true size and the
// decrypted filename.
type MegaClient struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
	seqno    atomic.Int64
}

// NewMegaClient creates a client against the given API endpoint
// (https://g.api.mega.co.nz/cs in production).
func NewMegaClient(cfg domain.MegaConfig, log *zap.Logger) *MegaClient {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &MegaClient{
		endpoint: cfg.APIEndpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}
}

// MegaFileKey is the unpacked form of a 32-byte public file key: the AES
// key halves XORed together, the CTR nonce and the meta-MAC the file
// content must verify against.
type MegaFileKey struct {
	AESKey  [16]byte
	Nonce   [8]byte
	MetaMAC [8]byte
}

// UnpackFileKey splits the decoded key material from a share link. Public
// file keys are exactly 32 bytes: cipher key = first half XOR second half,
// nonce and meta-MAC live in the second half.
func UnpackFileKey(key []byte) (MegaFileKey, error) {
	var fk MegaFileKey
	if len(key) != 32 {
		return fk, domain.NewError(domain.ErrorInvalidKeyEncoding,
			fmt.Sprintf("mega file key must be 32 bytes, got %d", len(key)))
	}
	for i := 0; i < 16; i++ {
		fk.AESKey[i] = key[i] ^ key[16+i]
	}
	copy(fk.Nonce[:], key[16:24])
	copy(fk.MetaMAC[:], key[24:32])
	return fk, nil
}

// MegaFileInfo describes a public file resolved through the API
type MegaFileInfo struct {
	DownloadURL string
	Size        int64
	Name        string
}

// megaGetResponse is the API answer to the 'g' command
type megaGetResponse struct {
	G  string `json:"g"`
	S  int64  `json:"s"`
	At string `json:"at"`
}

// PublicFileInfo resolves a public file handle into its download URL,
// size and decrypted name.
func (c *MegaClient) PublicFileInfo(ctx context.Context, handle string, key MegaFileKey) (*MegaFileInfo, error) {
	payload := []map[string]interface{}{{"a": "g", "g": 1, "p": handle}}

	raw, err := c.apiRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	var responses []json.RawMessage
	if err := json.Unmarshal(raw, &responses); err != nil || len(responses) == 0 {
		return nil, domain.WrapError(domain.ErrorRetryable, "malformed mega API response", err)
	}

	// Each list element may itself be a numeric error code
	if code, ok := apiErrorCode(responses[0]); ok {
		return nil, megaAPIError(code)
	}

	var resp megaGetResponse
	if err := json.Unmarshal(responses[0], &resp); err != nil {
		return nil, domain.WrapError(domain.ErrorRetryable, "malformed mega API response", err)
	}

	// Missing download URL: the file is inaccessible right now. Mega
	// sometimes restores such files later, so this stays retryable.
	if resp.G == "" {
		return nil, domain.NewError(domain.ErrorRetryable, "file not accessible anymore")
	}

	attr, err := base64.RawURLEncoding.DecodeString(resp.At)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorFatal, "undecodable file attributes", err)
	}
	name, err := decryptMegaAttr(attr, key.AESKey)
	if err != nil {
		return nil, err
	}

	return &MegaFileInfo{DownloadURL: resp.G, Size: resp.S, Name: name}, nil
}

// apiRequest posts one command batch and returns the raw response body
func (c *MegaClient) apiRequest(ctx context.Context, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorFatal, "failed to encode mega API request", err)
	}

	url := fmt.Sprintf("%s?id=%d", c.endpoint, c.seqno.Add(1))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.WrapError(domain.ErrorFatal, "failed to create mega API request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.WrapError(domain.ErrorCancelled, "mega API request cancelled", ctx.Err())
		}
		return nil, domain.WrapError(domain.ErrorRetryable, "mega API network error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.NewError(domain.ErrorRetryable, "mega API rate limited").
			WithRetryAfter(retryAfter(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(domain.ErrorRetryable,
			fmt.Sprintf("mega API returned HTTP %d", resp.StatusCode))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, domain.WrapError(domain.ErrorRetryable, "failed to read mega API response", err)
	}
	raw := buf.Bytes()

	// A bare integer body is a batch-level error code
	if code, ok := apiErrorCode(raw); ok {
		return nil, megaAPIError(code)
	}
	return raw, nil
}

// apiErrorCode detects Mega's numeric error responses
func apiErrorCode(raw []byte) (int, bool) {
	var code int
	if err := json.Unmarshal(bytes.TrimSpace(raw), &code); err == nil {
		return code, true
	}
	return 0, false
}

// megaAPIError maps Mega API error codes onto the engine's taxonomy.
// -3 (again) and -18 (temporarily unavailable) are transient; -4 signals
// rate limiting; everything naming a dead or blocked resource is fatal.
func megaAPIError(code int) error {
	switch code {
	case -3, -18:
		return domain.NewError(domain.ErrorRetryable, fmt.Sprintf("mega API busy (code %d)", code))
	case -4:
		return domain.NewError(domain.ErrorRetryable, "mega API rate limited (code -4)").
			WithRetryAfter(10 * time.Second)
	case -6, -9:
		return domain.NewError(domain.ErrorFatal, fmt.Sprintf("mega resource not found (code %d)", code))
	case -16:
		return domain.NewError(domain.ErrorFatal, "mega resource blocked (code -16)")
	case -17:
		return domain.NewError(domain.ErrorRetryable, "mega quota exceeded (code -17)").
			WithRetryAfter(time.Minute)
	default:
		return domain.NewError(domain.ErrorFatal, fmt.Sprintf("mega API error (code %d)", code))
	}
}

// decryptMegaAttr decrypts the attribute block (AES-CBC, zero IV) and
// extracts the filename from the MEGA{...} JSON inside.
func decryptMegaAttr(attr []byte, key [16]byte) (string, error) {
	if len(attr) == 0 || len(attr)%aes.BlockSize != 0 {
		return "", domain.NewError(domain.ErrorFatal, "mega attribute block has invalid length")
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", domain.WrapError(domain.ErrorFatal, "bad mega cipher key", err)
	}

	plain := make([]byte, len(attr))
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(plain, attr)

	// Attribute plaintext is `MEGA{json}` padded with NULs
	plain = bytes.TrimRight(plain, "\x00")
	if !bytes.HasPrefix(plain, []byte("MEGA")) {
		return "", domain.NewError(domain.ErrorFatal, "mega attribute decryption failed (wrong key?)")
	}

	var attrs struct {
		Name string `json:"n"`
	}
	if err := json.Unmarshal(plain[4:], &attrs); err != nil {
		return "", domain.WrapError(domain.ErrorFatal, "undecodable mega attributes", err)
	}
	if attrs.Name == "" {
		return "", domain.NewError(domain.ErrorFatal, "mega attributes carry no filename")
	}
	return attrs.Name, nil
}

// newMegaCTR builds the CTR stream for file content, seeked to the given
// 16-byte block offset so resumed transfers decrypt correctly. The
// counter layout is nonce (8 bytes) followed by the big-endian block
// index.
func newMegaCTR(key [16]byte, nonce [8]byte, blockOffset uint64) (cipher.Stream, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, domain.WrapError(domain.ErrorFatal, "bad mega cipher key", err)
	}
	var iv [16]byte
	copy(iv[:8], nonce[:])
	binary.BigEndian.PutUint64(iv[8:], blockOffset)
	return cipher.NewCTR(block, iv[:]), nil
}
