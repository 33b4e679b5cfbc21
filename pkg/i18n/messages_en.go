package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.MustParse("en-US")

	set := func(key, msg string) {
		if err := message.SetString(lang, key, msg); err != nil {
			panic(err)
		}
	}

	set(KeyUserSingular, "User")
	set(KeyUserPlural, "Users")
	set(KeyNotificationsTitle, "Notifications")

	set(KeyLastAccess, "Your last access was on <b>%s</b>, please update your information if needed.")
	set(KeyAgentStale, "The agent <b>%s</b> has not been updated since <b>%s</b>, please update its information if needed. <a class='btn btn-small btn-primary' href='%s'>edit</a>")
	set(KeySpaceStale, "The space <b>%s</b> has not been updated since <b>%s</b>, please update its information if needed. <a class='btn btn-small btn-primary' href='%s'>edit</a>")
	set(KeyAgentSealExpired, "The agent <b>%s</b> has its seal <b>%s</b> expired.<br>Open the entity and request a validity renewal. <a class='btn btn-small btn-primary' href='%s'>edit</a>")
	set(KeyAgentSealToExpire, "The agent <b>%s</b> has its seal <b>%s</b> expiring in %d day(s).<br>Open the entity and request a validity renewal. <a class='btn btn-small btn-primary' href='%s'>edit</a>")
	set(KeySpaceSealExpired, "The space <b>%s</b> has its seal <b>%s</b> expired.<br>Open the entity and request a validity renewal. <a class='btn btn-small btn-primary' href='%s'>edit</a>")
	set(KeySpaceSealToExpire, "The space <b>%s</b> has its seal <b>%s</b> expiring in %d day(s).<br>Open the entity and request a validity renewal. <a class='btn btn-small btn-primary' href='%s'>edit</a>")
}
