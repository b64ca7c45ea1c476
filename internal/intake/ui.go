package intake

const (
	msgHelp = "I schedule deferred posts.\n" +
		"/schedule - add a deferred post\n" +
		"/myposts - list pending posts\n" +
		"/addgroup - register a destination\n" +
		"/delgroup <name> - remove a destination\n" +
		"/groups - list destinations\n" +
		"/queue - destinations with pending posts"

	msgAskDateTime = "Send me the publish time as DD-MM-YYYY HH:MM.\n" +
		"For example: 13-11-2023 18:30"
	msgBadDateTime = "Incorrect date format. Please provide the date as DD-MM-YYYY HH:MM."

	msgAskTimezone = "Pick your timezone"
	msgBadTimezone = "Pick one of the timezone buttons."

	msgAskDestination     = "Pick the destination"
	msgUnknownDestination = "I don't know that destination. Pick one of the buttons, or /start to cancel."

	msgAskContent = "Send me the post as a single message"
	msgScheduled  = "Deferred post added."

	msgAskGroupName = "Send me a name for the destination."
	msgAskGroupRef  = "Now forward me any message from the target chat, or send its chat id."
	msgBadGroupRef  = "That doesn't look like a chat. Forward a message from it, or send a numeric chat id."

	msgNoPending      = "Not found"
	msgNoDestinations = "No destinations registered. Use /addgroup first."

	msgStorageTrouble = "Something went wrong on my side. Try again."
)
