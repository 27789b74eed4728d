package connection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tedsuo/rata"

	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/routes"
)

type Connection interface {
	Ping() error

	Create(spec bootstrap.ContainerSpec) (string, error)
	List() ([]string, error)
	Destroy(handle string) error

	Info(handle string) (bootstrap.ContainerInfo, error)
}

type connection struct {
	req *rata.RequestGenerator

	httpClient *http.Client
}

func New(network, address string) Connection {
	dialer := func(string, string) (net.Conn, error) {
		return net.DialTimeout(network, address, time.Second)
	}

	return &connection{
		req: rata.NewRequestGenerator("http://bootstrap", routes.Routes),

		httpClient: &http.Client{
			Transport: &http.Transport{
				Dial: dialer,
			},
		},
	}
}

func (c *connection) Ping() error {
	return c.do(routes.Ping, nil, &map[string]string{}, nil)
}

func (c *connection) Create(spec bootstrap.ContainerSpec) (string, error) {
	res := struct {
		Handle string `json:"handle"`
	}{}

	err := c.do(routes.Create, spec, &res, nil)
	if err != nil {
		return "", err
	}

	return res.Handle, nil
}

func (c *connection) List() ([]string, error) {
	res := struct {
		Handles []string `json:"handles"`
	}{}

	err := c.do(routes.List, nil, &res, nil)
	if err != nil {
		return nil, err
	}

	return res.Handles, nil
}

func (c *connection) Destroy(handle string) error {
	return c.do(
		routes.Destroy,
		nil,
		&struct{}{},
		rata.Params{
			"handle": handle,
		},
	)
}

func (c *connection) Info(handle string) (bootstrap.ContainerInfo, error) {
	res := bootstrap.ContainerInfo{}

	err := c.do(
		routes.Info,
		nil,
		&res,
		rata.Params{
			"handle": handle,
		},
	)
	if err != nil {
		return bootstrap.ContainerInfo{}, err
	}

	return res, nil
}

func (c *connection) do(
	handler string,
	req, res interface{},
	params rata.Params,
) error {
	var body io.Reader

	if req != nil {
		buf := new(bytes.Buffer)

		err := json.NewEncoder(buf).Encode(req)
		if err != nil {
			return err
		}

		body = buf
	}

	request, err := c.req.CreateRequest(handler, params, body)
	if err != nil {
		return err
	}

	if req != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}

	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var apiErr bootstrap.Error

		if err := json.NewDecoder(httpResp.Body).Decode(&apiErr); err != nil {
			return fmt.Errorf("bad response: %s", httpResp.Status)
		}

		return apiErr.Err
	}

	return json.NewDecoder(httpResp.Body).Decode(res)
}
