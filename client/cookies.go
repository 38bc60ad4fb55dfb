package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"go.etcd.io/bbolt"
)

const cookieBucket = "cookies"

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (c *Client) origin() *url.URL {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return &url.URL{}
	}
	return u
}

// Cookies returns the cookies the jar would send to the API
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.origin())
}

// RestoreCookies puts cookies saved by an earlier process back into the jar
func (c *Client) RestoreCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	c.jar.SetCookies(c.origin(), cookies)
}

// SaveCookies stores the API cookies under origin, replacing earlier ones
func (c *BoltCache) SaveCookies(origin string, cookies []*http.Cookie) error {
	saved := make([]savedCookie, 0, len(cookies))
	for _, ck := range cookies {
		saved = append(saved, savedCookie{Name: ck.Name, Value: ck.Value})
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	db, err := c.open(false)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(cookieBucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(origin), data)
	})
}

// LoadCookies returns the cookies saved for origin, if any
func (c *BoltCache) LoadCookies(origin string) ([]*http.Cookie, error) {
	if _, err := os.Stat(c.Path); os.IsNotExist(err) {
		return nil, nil
	}
	db, err := c.open(true)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var saved []savedCookie
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(cookieBucket))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(origin))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &saved)
	})
	if err != nil {
		return nil, fmt.Errorf("read saved cookies: %w", err)
	}
	out := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		out = append(out, &http.Cookie{Name: s.Name, Value: s.Value})
	}
	return out, nil
}
