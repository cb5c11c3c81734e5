// Package steam gera o snapshot "novo" a partir da Steam Web API: ranking de
// jogos mais jogados, contagem atual de jogadores e preço na loja.
//
// O resultado é gravado como CSV no formato de dataset.Columns.
package steam
