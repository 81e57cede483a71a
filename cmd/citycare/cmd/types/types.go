package types

// CtxKey - тип ключей контекста команд
type CtxKey string

// ClientAppKey - ключ, под которым приложение лежит в контексте команды
const ClientAppKey CtxKey = "app"
