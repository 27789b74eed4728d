package routes

import "github.com/tedsuo/rata"

const (
	Ping = "Ping"

	List    = "List"
	Create  = "Create"
	Info    = "Info"
	Destroy = "Destroy"
)

var Routes = rata.Routes{
	{Path: "/ping", Method: "GET", Name: Ping},

	{Path: "/containers", Method: "GET", Name: List},
	{Path: "/containers", Method: "POST", Name: Create},

	{Path: "/containers/:handle/info", Method: "GET", Name: Info},

	{Path: "/containers/:handle", Method: "DELETE", Name: Destroy},
}
