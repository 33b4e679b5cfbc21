package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.MustParse("pt-BR")

	set := func(key, msg string) {
		if err := message.SetString(lang, key, msg); err != nil {
			panic(err)
		}
	}

	set(KeyUserSingular, "Usuário")
	set(KeyUserPlural, "Usuários")
	set(KeyNotificationsTitle, "Notificações")

	set(KeyLastAccess, "Seu último acesso foi em <b>%s</b>, atualize suas informações se necessário.")
	set(KeyAgentStale, "O agente <b>%s</b> não é atualizado desde de <b>%s</b>, atualize as informações se necessário. <a class='btn btn-small btn-primary' href='%s'>editar</a>")
	set(KeySpaceStale, "O Espaço <b>%s</b> não é atualizado desde de <b>%s</b>, atualize as informações se necessário. <a class='btn btn-small btn-primary' href='%s'>editar</a>")
	set(KeyAgentSealExpired, "O Agente <b>%s</b> está com o seu selo <b>%s</b> expirado.<br>Acesse a entidade e solicite a renovação da validade. <a class='btn btn-small btn-primary' href='%s'>editar</a>")
	set(KeyAgentSealToExpire, "O Agente <b>%s</b> está com o seu selo <b>%s</b> para expirar em %d dia(s).<br>Acesse a entidade e solicite a renovação da validade. <a class='btn btn-small btn-primary' href='%s'>editar</a>")
	set(KeySpaceSealExpired, "O Espaço <b>%s</b> está com o seu selo <b>%s</b> expirado.<br>Acesse a entidade e solicite a renovação da validade. <a class='btn btn-small btn-primary' href='%s'>editar</a>")
	set(KeySpaceSealToExpire, "O Espaço <b>%s</b> está com o seu selo <b>%s</b> para expirar em %d dia(s).<br>Acesse a entidade e solicite a renovação da validade. <a class='btn btn-small btn-primary' href='%s'>editar</a>")
}
