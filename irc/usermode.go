package irc

// UserMode holds the two user-level flags this server supports: away
// and server-operator. The original source exposed dozens of
// network-specific flags (bot, vhost, services, SSL indicator, and so
// on); none of those are named by this server's command set, so the
// field set is cut down to exactly what IsAway/IsOperator/SetAway read.
type UserMode struct {
	Away     bool
	Operator bool
}
