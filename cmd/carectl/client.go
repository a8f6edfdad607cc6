package main

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

func client() *resty.Client {
	return resty.New().SetBaseURL(apiFlag)
}

// expect returns the response body or an error for non-2xx statuses.
func expect(resp *resty.Response, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.String(), nil
}
