package riot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// account is the account-v1 directory document.
type account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// ResolvePUUID maps a handle to its stable player identifier via the
// account-v1 directory on the handle's routing cluster.
//
// Exactly one outbound call is made: quota and availability failures surface
// to the caller as UpstreamError rather than being retried here, so the
// caller stays in charge of retry policy for identity resolution.
func (c *Client) ResolvePUUID(ctx context.Context, h Handle) (string, error) {
	cluster := c.route(h.Region)

	endpoint := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.clusterBaseURL(cluster),
		url.PathEscape(h.GameName),
		url.PathEscape(h.Tag),
	)

	var acct account
	if err := c.getJSON(ctx, endpoint, nil, 1, &acct); err != nil {
		return "", err
	}

	if acct.PUUID == "" {
		return "", &UpstreamError{Err: errors.New("directory response missing puuid")}
	}

	return acct.PUUID, nil
}
