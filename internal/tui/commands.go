package tui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/zulandar/proptalk/internal/nearby"
)

// helpText lists the slash commands.
const helpText = `Commands:
  /reset                 start a new conversation
  /map                   show or hide the map
  /pick N                select property N from the list
  /click N               click marker N on the map
  /ask <name>            ask about a property
  /details <name>        ask for a property's full details
  /nearby <type> <name>  find schools, hospitals or malls near a property
  /s N                   send suggestion N
  /help                  show this help
  /quit                  exit`

// command is one parsed slash command.
type command struct {
	name string
	args string
}

// parseCommand splits "/name args" input. ok is false for plain chat text.
func parseCommand(line string) (command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || len(line) == 1 {
		return command{}, false
	}
	name, args, _ := strings.Cut(line[1:], " ")
	return command{name: strings.ToLower(name), args: strings.TrimSpace(args)}, true
}

// index parses a 1-based index into a list of n items.
func (c command) index(n int) (int, error) {
	i, err := strconv.Atoi(c.args)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("/%s needs a number between 1 and %d", c.name, n)
	}
	return i - 1, nil
}

// nearbyArgs parses "<type> <name>". Plural types are accepted.
func (c command) nearbyArgs() (placeType, name string, err error) {
	typ, name, _ := strings.Cut(c.args, " ")
	typ = strings.TrimSuffix(strings.ToLower(typ), "s")
	name = strings.TrimSpace(name)
	if !slices.Contains(nearby.Categories, typ) || name == "" {
		return "", "", fmt.Errorf("usage: /nearby <%s> <property name>", strings.Join(nearby.Categories, "|"))
	}
	return typ, name, nil
}
