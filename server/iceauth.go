package server

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strconv"
	"time"
)

const defaultICEAuthTTL = 24 * time.Hour

// ICEAuthServers returns the servers as they should be handed out to peers.
// Servers with the secret auth type get credentials valid until now plus
// the TTL: the username is "<expiry unix seconds>:<username>" and the
// credential is the base64 HMAC-SHA1 of the username keyed with the secret,
// which is what TURN servers configured with a shared auth secret expect.
func ICEAuthServers(servers []ICEServer, now time.Time) []ICEServer {
	ret := make([]ICEServer, 0, len(servers))

	for _, s := range servers {
		ret = append(ret, iceAuthServer(s, now))
	}

	return ret
}

func iceAuthServer(s ICEServer, now time.Time) ICEServer {
	if s.AuthType != ICEAuthTypeSecret {
		return ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		}
	}

	ttl := s.AuthSecret.TTL
	if ttl <= 0 {
		ttl = defaultICEAuthTTL
	}

	username := strconv.FormatInt(now.Add(ttl).Unix(), 10)
	if s.AuthSecret.Username != "" {
		username += ":" + s.AuthSecret.Username
	}

	h := hmac.New(sha1.New, []byte(s.AuthSecret.Secret))
	_, _ = h.Write([]byte(username))

	return ICEServer{
		URLs:       s.URLs,
		Username:   username,
		Credential: base64.StdEncoding.EncodeToString(h.Sum(nil)),
	}
}
