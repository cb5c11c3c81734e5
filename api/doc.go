// Package api expõe as sessões por HTTP/JSON.
//
// Duas camadas de limite: o throttle por cliente (quota.Middleware) protege o
// processo; a cota de perguntas por sessão é aplicada pela própria sessão e
// devolvida como 429 com os headers X-Quota-*.
package api
