package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lukextesst/user/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const DefaultDiscordAPIURL = "https://discord.com/api"

type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIURL       string
	BotToken     string // enables FetchJoinDate
}

type Discord struct {
	oauth      *oauth2.Config
	apiURL     string
	botToken   string
	httpClient *http.Client
}

var (
	_ Provider       = (*Discord)(nil)
	_ JoinDateLookup = (*Discord)(nil)
)

type DiscordOption func(*Discord)

// WithHTTPClient sets the client used for every Discord call
func WithHTTPClient(client *http.Client) DiscordOption {
	return func(d *Discord) {
		d.httpClient = client
	}
}

func NewDiscord(cfg DiscordConfig, options ...DiscordOption) *Discord {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultDiscordAPIURL
	}

	d := &Discord{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   apiURL + "/oauth2/authorize",
				TokenURL:  apiURL + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:     apiURL,
		botToken:   cfg.BotToken,
		httpClient: &http.Client{},
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *Discord) AuthCodeURL(state string) string {
	return d.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (d *Discord) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, ExchangeTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.httpClient)

	token, err := d.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "[Discord ExchangeCode]")
	}
	if token.AccessToken == "" {
		return nil, errors.New("[Discord ExchangeCode] no access token in response")
	}
	return token, nil
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

func (d *Discord) FetchProfile(ctx context.Context, token *oauth2.Token) (Profile, error) {
	var user discordUser
	if err := d.getJSON(ctx, "/users/@me", "Bearer "+token.AccessToken, &user); err != nil {
		return Profile{}, errors.Wrap(err, "[Discord FetchProfile]")
	}
	if user.ID == "" {
		return Profile{}, errors.New("[Discord FetchProfile] profile without id")
	}

	name := user.GlobalName
	if name == "" {
		name = user.Username
	}
	return Profile{ID: user.ID, DisplayName: name, AvatarRef: user.Avatar}, nil
}

func (d *Discord) FetchMembership(ctx context.Context, token *oauth2.Token, communityID string) (bool, error) {
	var guilds []struct {
		ID string `json:"id"`
	}
	if err := d.getJSON(ctx, "/users/@me/guilds", "Bearer "+token.AccessToken, &guilds); err != nil {
		return false, errors.Wrap(err, "[Discord FetchMembership]")
	}
	for _, g := range guilds {
		if g.ID == communityID {
			return true, nil
		}
	}
	return false, nil
}

// FetchJoinDate asks the bot for the guild member record. It needs a bot token.
func (d *Discord) FetchJoinDate(ctx context.Context, communityID, subjectID string) *time.Time {
	if d.botToken == "" || communityID == "" {
		return nil
	}

	var member struct {
		JoinedAt string `json:"joined_at"`
	}
	path := fmt.Sprintf("/guilds/%s/members/%s", url.PathEscape(communityID), url.PathEscape(subjectID))
	if err := d.getJSON(ctx, path, "Bot "+d.botToken, &member); err != nil {
		log.Warn().Err(err).Str("subject", subjectID).Msg("guild member lookup failed")
		return nil
	}
	if member.JoinedAt == "" {
		return nil
	}

	joinedAt, err := time.Parse(time.RFC3339Nano, member.JoinedAt)
	if err != nil {
		log.Warn().Err(err).Str("joined_at", member.JoinedAt).Msg("unparsable guild join date")
		return nil
	}
	return utils.Ptr(joinedAt.UTC())
}

func (d *Discord) getJSON(ctx context.Context, path, authorization string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
