package geoipsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"
	"github.com/pkg/errors"

	"github.com/trezcool/duka/core"
	"github.com/trezcool/duka/core/visitor"
)

var ipinfoHost = "https://ipinfo.io"

// ipInfoResponse is the subset of the ipinfo.io payload we care about;
// Loc is "lat,lng".
type ipInfoResponse struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
}

// IPInfoService resolves visitor locations from ipinfo.io. Lookups are
// best-effort: callers treat errors as "no location".
type IPInfoService struct {
	client *httpclient.Client
	token  string
}

var _ visitor.Resolver = (*IPInfoService)(nil)

func NewIPInfoService(conf *core.Config) *IPInfoService {
	backoff := heimdall.NewConstantBackoff(500*time.Millisecond, 5*time.Millisecond)
	return &IPInfoService{
		client: httpclient.NewClient(
			httpclient.WithHTTPTimeout(conf.GeoIP.Timeout),
			httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
			httpclient.WithRetryCount(conf.GeoIP.RetryCount),
		),
		token: conf.GeoIP.IPInfoToken,
	}
}

func (svc *IPInfoService) LookupIP(ctx context.Context, ip string) (*visitor.Location, error) {
	url := fmt.Sprintf("%s/%s?token=%s", ipinfoHost, ip, svc.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building ipinfo request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := svc.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling ipinfo")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		return nil, errors.Errorf("ipinfo returned status %d", res.StatusCode)
	}

	var info ipInfoResponse
	if err = json.NewDecoder(res.Body).Decode(&info); err != nil {
		return nil, errors.Wrap(err, "decoding ipinfo response")
	}

	raw := &visitor.RawLocation{
		City:        info.City,
		CountryCode: info.Country,
	}
	if parts := strings.SplitN(info.Loc, ",", 2); len(parts) == 2 {
		raw.Latitude = parts[0]
		raw.Longitude = parts[1]
	}
	return visitor.SanitizeLocation(raw), nil
}
