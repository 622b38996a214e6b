package zkproof

import (
	"bufio"
	"context"
	"crypto/sha256"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"

	zkconfig "github.com/weisyn/noirzk/internal/config/zkproof"
)

// SRSSource SRS来源
//
// Fetch 返回至少包含 size 个G1点的SRS；不做重试，失败直接返回。
type SRSSource interface {
	Name() string
	Fetch(ctx context.Context, tier uint32, size uint64) (*kzg.SRS, error)
}

// NewSRSSource 根据配置创建SRS来源
func NewSRSSource(opts *zkconfig.ZKOptions) (SRSSource, error) {
	switch opts.SRSSource {
	case zkconfig.SourceDerived, "":
		return NewDerivedSource(opts.SRSSeed), nil
	case zkconfig.SourceHTTP:
		if opts.SRSBaseURL == "" {
			return nil, fmt.Errorf("http SRS source requires a base URL")
		}
		return NewHTTPSource(opts.SRSBaseURL, opts.DownloadTimeout), nil
	default:
		return nil, fmt.Errorf("unknown SRS source %q", opts.SRSSource)
	}
}

// ==================== 确定性派生来源 ====================

// DerivedSource 由种子确定性派生SRS
//
// ⚠️ 派生出的 τ 可由种子复算，只适用于开发和测试
type DerivedSource struct {
	seed string
}

// NewDerivedSource 创建派生来源
func NewDerivedSource(seed string) *DerivedSource {
	return &DerivedSource{seed: seed}
}

// Name 来源名称
func (s *DerivedSource) Name() string { return zkconfig.SourceDerived }

// Fetch 派生指定长度的SRS
func (s *DerivedSource) Fetch(_ context.Context, _ uint32, size uint64) (*kzg.SRS, error) {
	h := sha256.Sum256([]byte("noirzk/srs/" + s.seed))
	tau := new(big.Int).SetBytes(h[:])
	tau.Mod(tau, fr.Modulus())
	if tau.Sign() == 0 {
		tau.SetUint64(1)
	}
	return kzg.NewSRS(size, tau)
}

// ==================== HTTP 下载来源 ====================

// HTTPSource 从 <baseURL>/bn254_g1_<tier>.srs 下载gnark序列化的SRS
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource 创建HTTP来源
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name 来源名称
func (s *HTTPSource) Name() string { return zkconfig.SourceHTTP }

// Fetch 下载并校验SRS（子群检查由 ReadFrom 完成）
func (s *HTTPSource) Fetch(ctx context.Context, tier uint32, size uint64) (*kzg.SRS, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, srsFileName(tier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载SRS失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下载SRS失败: %s returned %s", url, resp.Status)
	}

	var srs kzg.SRS
	if _, err := srs.ReadFrom(bufio.NewReaderSize(resp.Body, 1<<20)); err != nil {
		return nil, fmt.Errorf("解析下载的SRS失败: %w", err)
	}
	if uint64(len(srs.Pk.G1)) < size {
		return nil, fmt.Errorf("下载的SRS只有 %d 个点，需要 %d", len(srs.Pk.G1), size)
	}
	return &srs, nil
}
