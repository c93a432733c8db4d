// Package relay provides an optional terminal admin console for the
// server: a live view of rooms and the activity feed.
package relay

import (
	"fmt"
	"time"

	"github.com/jroimartin/gocui"
)

// Console renders server activity in a terminal UI. It is read-only; the
// protocol is still driven entirely over the network.
type Console struct {
	gui    *gocui.Gui
	server *Server

	feedView   string
	roomView   string
	statusView string
}

// NewConsole builds a console bound to the server's activity feed.
func NewConsole(server *Server) (*Console, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	c := &Console{
		gui:        g,
		server:     server,
		feedView:   "activity",
		roomView:   "rooms",
		statusView: "status",
	}

	g.SetManagerFunc(c.layout)
	return c, nil
}

func (c *Console) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	sidebarWidth := 24
	feedWidth := maxX - sidebarWidth - 1
	feedHeight := maxY - 3

	if v, err := g.SetView(c.feedView, 0, 0, feedWidth, feedHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Activity"
		v.Wrap = true
		v.Autoscroll = true
	}

	if v, err := g.SetView(c.roomView, feedWidth+1, 0, maxX-1, feedHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Rooms"
		v.Wrap = true
	}

	if v, err := g.SetView(c.statusView, 0, feedHeight+1, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		fmt.Fprintf(v, "Listening on %s | Ctrl-C: quit", c.server.Addr())
	}

	return nil
}

func (c *Console) quit(*gocui.Gui, *gocui.View) error {
	return gocui.ErrQuit
}

func (c *Console) appendActivity(line string) {
	c.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(c.feedView)
		if err != nil {
			return nil
		}
		fmt.Fprintf(v, "[%s] %s\n", time.Now().Format("15:04:05"), line)
		return nil
	})
}

func (c *Console) refreshRooms() {
	statuses := c.server.RoomsSnapshot()

	c.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(c.roomView)
		if err != nil {
			return nil
		}
		v.Clear()
		for _, status := range statuses {
			fmt.Fprintf(v, "%s (%d users)\n", status.Name, status.Members)
		}
		return nil
	})
}

// Run drives the console until the user quits. It consumes the server's
// activity feed and refreshes the room list periodically.
func (c *Console) Run() error {
	defer c.gui.Close()

	if err := c.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, c.quit); err != nil {
		return err
	}

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case line := <-c.server.Events():
				c.appendActivity(line)
			case <-ticker.C:
				c.refreshRooms()
			case <-stop:
				return
			}
		}
	}()

	if err := c.gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}
